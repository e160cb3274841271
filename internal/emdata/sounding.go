// Package emdata loads frequency-domain electromagnetic sounding datasets
// and derives per-datum uncertainties for inversion.
package emdata

import (
	"fmt"
	"math"
)

// Sounding holds a single-location frequency-domain sounding: one transmitter
// frequency per row of the input file, with the measured real and imaginary
// secondary-field components flattened into a single data vector.
type Sounding struct {
	// Frequencies is the ordered list of transmitter frequencies in Hz.
	Frequencies []float64

	// Data is the flattened observed vector in ppm of the primary field,
	// interleaved (real1, imag1, real2, imag2, ...) in frequency order.
	Data []float64
}

// NDatums returns the number of observed values.
func (s Sounding) NDatums() int {
	return len(s.Data)
}

// Validate checks the structural invariants of the sounding: the data vector
// must hold exactly two values (real and imaginary) per frequency, and every
// frequency must be positive.
func (s Sounding) Validate() error {
	if len(s.Frequencies) == 0 {
		return fmt.Errorf("sounding has no frequencies")
	}
	if len(s.Data) != 2*len(s.Frequencies) {
		return fmt.Errorf("datum count %d does not equal 2 x %d frequencies", len(s.Data), len(s.Frequencies))
	}
	for i, f := range s.Frequencies {
		if !(f > 0) {
			return fmt.Errorf("frequency %d is %g, must be positive", i, f)
		}
	}
	return nil
}

// Uncertainties builds the per-datum standard deviation vector as
// relative*|d| + floor. The misfit weighting downstream divides by these
// values, so every entry must come out strictly positive; a zero datum with a
// zero floor is rejected here rather than surfacing later as a division by
// zero inside the inversion.
func (s Sounding) Uncertainties(floor, relative float64) ([]float64, error) {
	if floor < 0 || relative < 0 {
		return nil, fmt.Errorf("uncertainty floor %g and relative %g must be non-negative", floor, relative)
	}
	out := make([]float64, len(s.Data))
	for i, d := range s.Data {
		u := relative*math.Abs(d) + floor
		if !(u > 0) {
			return nil, fmt.Errorf("datum %d: uncertainty %g is not positive (value %g, floor %g, relative %g)", i, u, d, floor, relative)
		}
		out[i] = u
	}
	return out, nil
}
