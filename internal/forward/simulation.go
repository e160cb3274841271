package forward

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/sounding.report/internal/mesh"
	"github.com/banshee-data/sounding.report/internal/survey"
)

// Simulation1D predicts the flattened ppm data vector for a layered-earth
// model and a fixed survey geometry. The model parameter vector is
// log-conductivity, one entry per thickness plus the basement half-space,
// mapped through Mapping before the physics sees it.
type Simulation1D struct {
	Survey      *survey.Survey
	Thicknesses []float64
	Mapping     mesh.ExpMap
	Quad        Quadrature
}

// NewSimulation1D wires a simulation with default quadrature settings.
func NewSimulation1D(svy *survey.Survey, thicknesses []float64) (*Simulation1D, error) {
	if svy == nil || len(svy.Sources) == 0 {
		return nil, fmt.Errorf("simulation needs a survey with at least one source")
	}
	if len(thicknesses) == 0 {
		return nil, fmt.Errorf("simulation needs at least one layer thickness")
	}
	for i, t := range thicknesses {
		if !(t > 0) {
			return nil, fmt.Errorf("thickness %d is %g, must be positive", i, t)
		}
	}
	return &Simulation1D{
		Survey:      svy,
		Thicknesses: thicknesses,
		Quad:        DefaultQuadrature(),
	}, nil
}

// NParams returns the expected model vector length.
func (s *Simulation1D) NParams() int {
	return len(s.Thicknesses) + 1
}

// Predict maps logCond to conductivities and returns the predicted data
// vector: (real, imag) ppm per source, in survey order, matching the observed
// vector layout exactly.
func (s *Simulation1D) Predict(logCond []float64) ([]float64, error) {
	if len(logCond) != s.NParams() {
		return nil, fmt.Errorf("model has %d parameters, simulation expects %d", len(logCond), s.NParams())
	}
	cond := s.Mapping.Forward(logCond)

	h := s.Survey.Height()
	r := s.Survey.Offset()

	out := make([]float64, 0, s.Survey.NDatums())
	for _, src := range s.Survey.Sources {
		omega := 2 * math.Pi * src.Frequency
		kernel := func(lambda float64) complex128 {
			return rTE(lambda, omega, cond, s.Thicknesses)
		}
		hs := s.Quad.Integrate(kernel, h, r)
		hs *= complex(src.Moment/(4*math.Pi), 0)

		// Free-space primary of a vertical dipole on its equatorial plane;
		// ppm normalisation uses its magnitude.
		hp := src.Moment / (4 * math.Pi * r * r * r)
		ppm := hs * complex(1e6/hp, 0)

		out = append(out, real(ppm), imag(ppm))
	}
	return out, nil
}

// Jacobian returns the sensitivity matrix d(data)/d(logCond) by central
// finite differences, shape NDatums x NParams. The inversion consumes this
// every outer iteration; at sounding scale (tens of data, tens of layers) the
// 2·NParams extra forward solves are negligible.
func (s *Simulation1D) Jacobian(logCond []float64) (*mat.Dense, error) {
	if len(logCond) != s.NParams() {
		return nil, fmt.Errorf("model has %d parameters, simulation expects %d", len(logCond), s.NParams())
	}
	const step = 1e-4

	nd := s.Survey.NDatums()
	np := s.NParams()
	J := mat.NewDense(nd, np, nil)

	perturbed := make([]float64, np)
	for j := 0; j < np; j++ {
		copy(perturbed, logCond)
		perturbed[j] = logCond[j] + step
		plus, err := s.Predict(perturbed)
		if err != nil {
			return nil, fmt.Errorf("jacobian column %d: %w", j, err)
		}
		perturbed[j] = logCond[j] - step
		minus, err := s.Predict(perturbed)
		if err != nil {
			return nil, fmt.Errorf("jacobian column %d: %w", j, err)
		}
		for i := 0; i < nd; i++ {
			J.Set(i, j, (plus[i]-minus[i])/(2*step))
		}
	}
	return J, nil
}
