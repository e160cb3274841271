// Package inversion implements the regularized Gauss-Newton inversion used
// by the sounding workflow: a weighted least-squares data misfit, a
// smallness-plus-smoothness regularization with optional sparsity (IRLS)
// reweighting, an inner preconditioned conjugate-gradient solve, and the
// per-iteration directives that steer the trade-off parameter.
package inversion

import "fmt"

// DataMisfit is the weighted L2 data misfit phi_d = ||Wd (F(m) - d)||^2 with
// Wd = diag(1/uncertainty).
type DataMisfit struct {
	Observed []float64
	wd       []float64
}

// NewDataMisfit builds the misfit functional. Uncertainties must be strictly
// positive elementwise; the weights divide by them.
func NewDataMisfit(observed, uncertainties []float64) (*DataMisfit, error) {
	if len(observed) == 0 {
		return nil, fmt.Errorf("data misfit needs at least one datum")
	}
	if len(observed) != len(uncertainties) {
		return nil, fmt.Errorf("got %d observed values but %d uncertainties", len(observed), len(uncertainties))
	}
	wd := make([]float64, len(uncertainties))
	for i, u := range uncertainties {
		if !(u > 0) {
			return nil, fmt.Errorf("uncertainty %d is %g, must be strictly positive", i, u)
		}
		wd[i] = 1 / u
	}
	return &DataMisfit{Observed: observed, wd: wd}, nil
}

// NData returns the datum count.
func (dm *DataMisfit) NData() int {
	return len(dm.Observed)
}

// Value returns phi_d for a predicted data vector.
func (dm *DataMisfit) Value(predicted []float64) (float64, error) {
	if len(predicted) != len(dm.Observed) {
		return 0, fmt.Errorf("predicted vector has %d entries, observed has %d", len(predicted), len(dm.Observed))
	}
	var sum float64
	for i, p := range predicted {
		r := (p - dm.Observed[i]) * dm.wd[i]
		sum += r * r
	}
	return sum, nil
}

// WeightedResidual returns Wd (predicted - observed).
func (dm *DataMisfit) WeightedResidual(predicted []float64) ([]float64, error) {
	if len(predicted) != len(dm.Observed) {
		return nil, fmt.Errorf("predicted vector has %d entries, observed has %d", len(predicted), len(dm.Observed))
	}
	out := make([]float64, len(predicted))
	for i, p := range predicted {
		out[i] = (p - dm.Observed[i]) * dm.wd[i]
	}
	return out, nil
}

// Weights exposes the 1/uncertainty diagonal for Hessian products.
func (dm *DataMisfit) Weights() []float64 {
	return dm.wd
}
