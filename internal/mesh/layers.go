// Package mesh defines the 1D layered-earth discretization and the mapping
// between the inversion's log-conductivity parameters and physical
// conductivity.
package mesh

import (
	"fmt"
	"math"
)

// GeometricThicknesses returns n log-spaced layer thicknesses growing from
// min to max metres. The result is strictly positive and monotonically
// non-decreasing; thin layers near the surface resolve shallow structure
// while deeper layers coarsen with the decaying resolution of the data.
func GeometricThicknesses(min, max float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("layer count %d must be at least 1", n)
	}
	if !(min > 0) || !(max >= min) {
		return nil, fmt.Errorf("thickness range [%g, %g] must satisfy 0 < min <= max", min, max)
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = min
		return out, nil
	}
	logMin, logMax := math.Log10(min), math.Log10(max)
	step := (logMax - logMin) / float64(n-1)
	for i := range out {
		out[i] = math.Pow(10, logMin+float64(i)*step)
	}
	return out, nil
}

// WithHalfspace appends a copy of the deepest thickness so the model and
// regularization meshes carry one extra cell representing the basement
// half-space.
func WithHalfspace(thicknesses []float64) []float64 {
	if len(thicknesses) == 0 {
		return nil
	}
	out := make([]float64, len(thicknesses)+1)
	copy(out, thicknesses)
	out[len(thicknesses)] = thicknesses[len(thicknesses)-1]
	return out
}

// InterfaceDepths returns the cumulative depths of the layer boundaries,
// starting at the surface (0) and ending at the bottom of the last listed
// layer. len(result) == len(thicknesses)+1.
func InterfaceDepths(thicknesses []float64) []float64 {
	out := make([]float64, len(thicknesses)+1)
	for i, t := range thicknesses {
		out[i+1] = out[i] + t
	}
	return out
}

// ExpMap maps log-conductivity model parameters to physical conductivity.
// The exponential keeps conductivities positive regardless of the optimizer's
// excursions.
type ExpMap struct{}

// Forward converts log-conductivity to conductivity in S/m.
func (ExpMap) Forward(logCond []float64) []float64 {
	out := make([]float64, len(logCond))
	for i, v := range logCond {
		out[i] = math.Exp(v)
	}
	return out
}

// Inverse converts conductivity to log-conductivity. Every input must be
// strictly positive; zero conductivity has no finite log and would poison the
// starting model.
func (ExpMap) Inverse(cond []float64) ([]float64, error) {
	out := make([]float64, len(cond))
	for i, v := range cond {
		if !(v > 0) {
			return nil, fmt.Errorf("conductivity %d is %g, must be strictly positive", i, v)
		}
		out[i] = math.Log(v)
	}
	return out, nil
}

// LayeredModel pairs the fixed thickness discretization with a
// log-conductivity parameter vector of length len(Thicknesses)+1; the final
// parameter is the basement half-space.
type LayeredModel struct {
	Thicknesses     []float64
	LogConductivity []float64
}

// NewLayeredModel builds a model with a constant starting log-conductivity.
// The starting value maps to a nonzero conductivity by construction of the
// exponential, but it should also sit away from the data's null space: a
// wildly wrong constant gives the first Gauss-Newton iteration a usable
// gradient, an exactly degenerate one does not.
func NewLayeredModel(thicknesses []float64, startLogCond float64) (*LayeredModel, error) {
	if len(thicknesses) == 0 {
		return nil, fmt.Errorf("model needs at least one thickness")
	}
	for i, t := range thicknesses {
		if !(t > 0) {
			return nil, fmt.Errorf("thickness %d is %g, must be positive", i, t)
		}
	}
	if math.IsNaN(startLogCond) || math.IsInf(startLogCond, 0) {
		return nil, fmt.Errorf("starting log-conductivity %g must be finite", startLogCond)
	}
	m := &LayeredModel{
		Thicknesses:     thicknesses,
		LogConductivity: make([]float64, len(thicknesses)+1),
	}
	for i := range m.LogConductivity {
		m.LogConductivity[i] = startLogCond
	}
	return m, nil
}

// NParams returns the parameter count: one per layer plus the half-space.
func (m *LayeredModel) NParams() int {
	return len(m.Thicknesses) + 1
}

// StepProfile expands a per-layer value vector into (depth, value) pairs
// suitable for a step plot against depth. The half-space cell is drawn down
// to maxDepth, and never shallower than its own implied thickness. values
// must have length NParams().
func (m *LayeredModel) StepProfile(values []float64, maxDepth float64) (depths, vals []float64, err error) {
	if len(values) != m.NParams() {
		return nil, nil, fmt.Errorf("got %d values for %d model cells", len(values), m.NParams())
	}
	bounds := InterfaceDepths(WithHalfspace(m.Thicknesses))
	if bottom := bounds[len(bounds)-1]; maxDepth < bottom {
		maxDepth = bottom
	}
	for i, v := range values {
		base := bounds[i+1]
		if i == len(values)-1 {
			base = maxDepth
		}
		depths = append(depths, bounds[i], base)
		vals = append(vals, v, v)
	}
	return depths, vals, nil
}
