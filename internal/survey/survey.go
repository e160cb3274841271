// Package survey describes the acquisition geometry of a frequency-domain
// electromagnetic sounding: one vertical-dipole transmitter per frequency and
// a shared pair of receivers measuring the real and imaginary components of
// the secondary vertical magnetic field.
package survey

import (
	"fmt"
	"math"
)

// Component selects which part of the complex secondary field a receiver
// measures.
type Component int

const (
	Real Component = iota
	Imag
)

// String returns the component name.
func (c Component) String() string {
	switch c {
	case Real:
		return "real"
	case Imag:
		return "imag"
	default:
		return fmt.Sprintf("component(%d)", int(c))
	}
}

// Source is a vertical magnetic dipole transmitter. Immutable once built.
type Source struct {
	// Location in metres, z positive up, ground surface at z=0.
	Location [3]float64
	// Moment is the dipole moment in A·m².
	Moment float64
	// Frequency in Hz.
	Frequency float64
}

// Receiver measures one component of the secondary vertical magnetic field,
// normalised to parts-per-million of the free-space primary field.
type Receiver struct {
	Location  [3]float64
	Component Component
}

// Survey is an ordered collection of sources, each bound to the shared
// receiver pair. Source order matches the frequency list order exactly; the
// flattened data vector depends on it.
type Survey struct {
	Sources   []Source
	Receivers [2]Receiver
}

// Build constructs the survey geometry: for each frequency, one unit-moment
// transmitter at (0, 0, height), bound to a real/imaginary receiver pair at
// (offset, 0, height).
func Build(frequencies []float64, height, offset float64) (*Survey, error) {
	if len(frequencies) == 0 {
		return nil, fmt.Errorf("survey needs at least one frequency")
	}
	if offset <= 0 {
		return nil, fmt.Errorf("receiver offset %g must be positive", offset)
	}
	for i, f := range frequencies {
		if !(f > 0) {
			return nil, fmt.Errorf("frequency %d is %g, must be positive", i, f)
		}
	}

	s := &Survey{
		Receivers: [2]Receiver{
			{Location: [3]float64{offset, 0, height}, Component: Real},
			{Location: [3]float64{offset, 0, height}, Component: Imag},
		},
	}
	s.Sources = make([]Source, len(frequencies))
	for i, f := range frequencies {
		s.Sources[i] = Source{
			Location:  [3]float64{0, 0, height},
			Moment:    1,
			Frequency: f,
		}
	}
	return s, nil
}

// NDatums returns the flattened datum count: real and imaginary per source.
func (s *Survey) NDatums() int {
	return 2 * len(s.Sources)
}

// Frequencies returns the source frequencies in survey order.
func (s *Survey) Frequencies() []float64 {
	out := make([]float64, len(s.Sources))
	for i, src := range s.Sources {
		out[i] = src.Frequency
	}
	return out
}

// Offset returns the horizontal source-receiver separation in metres.
func (s *Survey) Offset() float64 {
	dx := s.Receivers[0].Location[0] - s.Sources[0].Location[0]
	dy := s.Receivers[0].Location[1] - s.Sources[0].Location[1]
	return math.Hypot(dx, dy)
}

// Height returns the common source/receiver elevation above the surface.
func (s *Survey) Height() float64 {
	return s.Sources[0].Location[2]
}
