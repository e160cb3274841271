// Command forward1d simulates a frequency-domain sounding over a
// layered earth and writes it in the loader's text format. Useful for
// generating synthetic data to exercise the inversion.
package main

import (
	"flag"
	"log"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/banshee-data/sounding.report/internal/emdata"
	"github.com/banshee-data/sounding.report/internal/forward"
	"github.com/banshee-data/sounding.report/internal/mesh"
	"github.com/banshee-data/sounding.report/internal/survey"
)

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func main() {
	var outPath string
	var freqStr string
	var condStr string
	var thickStr string
	var height float64
	var offset float64
	var noise float64
	var seed int64

	flag.StringVar(&outPath, "out", "sounding.txt", "output data file")
	flag.StringVar(&freqStr, "freqs", "382,1822,7970,35920,130100", "comma-separated frequencies in Hz")
	flag.StringVar(&condStr, "conductivities", "0.1,1.0,0.1", "comma-separated layer conductivities in S/m")
	flag.StringVar(&thickStr, "thicknesses", "20,40", "comma-separated layer thicknesses in m (one fewer than conductivities)")
	flag.Float64Var(&height, "height", 30, "source and receiver height in m")
	flag.Float64Var(&offset, "offset", 8, "source-receiver offset in m")
	flag.Float64Var(&noise, "noise", 0, "relative gaussian noise to add, e.g. 0.05")
	flag.Int64Var(&seed, "seed", 1, "noise random seed")
	flag.Parse()

	freqs, err := parseFloats(freqStr)
	if err != nil {
		log.Fatalf("invalid -freqs: %v", err)
	}
	cond, err := parseFloats(condStr)
	if err != nil {
		log.Fatalf("invalid -conductivities: %v", err)
	}
	thicknesses, err := parseFloats(thickStr)
	if err != nil {
		log.Fatalf("invalid -thicknesses: %v", err)
	}
	if len(cond) != len(thicknesses)+1 {
		log.Fatalf("got %d conductivities for %d thicknesses, want one more", len(cond), len(thicknesses))
	}

	svy, err := survey.Build(freqs, height, offset)
	if err != nil {
		log.Fatalf("build survey: %v", err)
	}
	sim, err := forward.NewSimulation1D(svy, thicknesses)
	if err != nil {
		log.Fatalf("build simulation: %v", err)
	}

	var mapping mesh.ExpMap
	logCond, err := mapping.Inverse(cond)
	if err != nil {
		log.Fatalf("invalid conductivities: %v", err)
	}

	data, err := sim.Predict(logCond)
	if err != nil {
		log.Fatalf("forward simulation: %v", err)
	}

	if noise > 0 {
		rng := rand.New(rand.NewSource(seed))
		for i := range data {
			data[i] += noise * math.Abs(data[i]) * rng.NormFloat64()
		}
	}

	sounding := emdata.Sounding{Frequencies: freqs, Data: data}
	if err := sounding.Validate(); err != nil {
		log.Fatalf("simulated sounding invalid: %v", err)
	}
	if err := emdata.WriteSounding(outPath, sounding); err != nil {
		log.Fatalf("write sounding: %v", err)
	}
	log.Printf("wrote %d datums at %d frequencies to %s", sounding.NDatums(), len(freqs), outPath)
}
