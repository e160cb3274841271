package emdata

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadSounding reads a whitespace-delimited sounding file. The first row is a
// header and is skipped; every remaining non-empty row must hold exactly
// three numeric columns: frequency in Hz, real component in ppm, imaginary
// component in ppm. Row order determines data-vector order.
func LoadSounding(path string) (Sounding, error) {
	f, err := os.Open(path)
	if err != nil {
		return Sounding{}, fmt.Errorf("open sounding file: %w", err)
	}
	defer f.Close()

	var s Sounding
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 || line == "" {
			// header row
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return Sounding{}, fmt.Errorf("line %d: expected 3 columns, got %d", lineNo, len(fields))
		}
		vals := make([]float64, 3)
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return Sounding{}, fmt.Errorf("line %d: invalid number %q: %w", lineNo, field, err)
			}
			vals[i] = v
		}
		s.Frequencies = append(s.Frequencies, vals[0])
		s.Data = append(s.Data, vals[1], vals[2])
	}
	if err := scanner.Err(); err != nil {
		return Sounding{}, fmt.Errorf("read sounding file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Sounding{}, err
	}
	return s, nil
}

// WriteSounding writes a sounding in the same text format LoadSounding reads.
// Used by the synthetic data generator.
func WriteSounding(path string, s Sounding) error {
	if err := s.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sounding file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "FREQUENCY HZ_REAL HZ_IMAG")
	for i, freq := range s.Frequencies {
		fmt.Fprintf(w, "%.6e %.6e %.6e\n", freq, s.Data[2*i], s.Data[2*i+1])
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write sounding file: %w", err)
	}
	return nil
}
