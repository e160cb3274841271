package inversion

import (
	"fmt"
	"math"
)

// Regularization is the model-space penalty
//
//	phi_m(m) = alpha_s * sum_i cw_i rs_i (m_i - ref_i)^2
//	         + alpha_x * sum_k cwx_k rx_k (m_{k+1} - m_k)^2
//
// where cw are sensitivity-based cell weights and rs/rx are IRLS weights.
// With all weights at 1 this is the classic smallness + first-difference
// smoothness; the IRLS weights bend it toward the sparse norms p (smallness)
// and q (smoothness).
type Regularization struct {
	AlphaS    float64
	AlphaX    float64
	Reference []float64

	n           int
	cellWeights []float64 // length n
	irlsS       []float64 // length n
	irlsX       []float64 // length n-1
}

// NewRegularization builds a regularization over n model cells with unit
// weights and the given reference model.
func NewRegularization(n int, alphaS, alphaX float64, reference []float64) (*Regularization, error) {
	if n < 2 {
		return nil, fmt.Errorf("regularization needs at least 2 cells, got %d", n)
	}
	if len(reference) != n {
		return nil, fmt.Errorf("reference model has %d entries for %d cells", len(reference), n)
	}
	if alphaS < 0 || alphaX < 0 {
		return nil, fmt.Errorf("alpha_s %g and alpha_x %g must be non-negative", alphaS, alphaX)
	}
	r := &Regularization{
		AlphaS:    alphaS,
		AlphaX:    alphaX,
		Reference: reference,
		n:         n,
	}
	r.ResetIRLS()
	r.SetCellWeights(nil)
	return r, nil
}

// SetCellWeights installs sensitivity-based cell weights; nil restores unit
// weights. Values must be positive.
func (r *Regularization) SetCellWeights(w []float64) error {
	if w == nil {
		r.cellWeights = make([]float64, r.n)
		for i := range r.cellWeights {
			r.cellWeights[i] = 1
		}
		return nil
	}
	if len(w) != r.n {
		return fmt.Errorf("got %d cell weights for %d cells", len(w), r.n)
	}
	for i, v := range w {
		if !(v > 0) {
			return fmt.Errorf("cell weight %d is %g, must be positive", i, v)
		}
	}
	r.cellWeights = append([]float64(nil), w...)
	return nil
}

// ResetIRLS restores unit IRLS weights (the pure least-squares penalty).
func (r *Regularization) ResetIRLS() {
	r.irlsS = make([]float64, r.n)
	r.irlsX = make([]float64, r.n-1)
	for i := range r.irlsS {
		r.irlsS[i] = 1
	}
	for i := range r.irlsX {
		r.irlsX[i] = 1
	}
}

// UpdateIRLS recomputes the IRLS weights for norm exponents p (smallness) and
// q (smoothness) about the current model:
//
//	rs_i = (|m_i - ref_i|^2 + eps^2)^(p/2 - 1)
//	rx_k = (|m_{k+1} - m_k|^2 + eps^2)^(q/2 - 1)
//
// Weights are rescaled so their maximum is 1, keeping phi_m on a comparable
// scale across reweighting passes; the beta adjustment holds the misfit at
// target either way.
func (r *Regularization) UpdateIRLS(m []float64, eps, p, q float64) error {
	if len(m) != r.n {
		return fmt.Errorf("model has %d entries for %d cells", len(m), r.n)
	}
	if !(eps > 0) {
		return fmt.Errorf("IRLS epsilon %g must be positive", eps)
	}
	maxS := 0.0
	for i := range r.irlsS {
		d := m[i] - r.Reference[i]
		r.irlsS[i] = math.Pow(d*d+eps*eps, p/2-1)
		if r.irlsS[i] > maxS {
			maxS = r.irlsS[i]
		}
	}
	if maxS > 0 {
		for i := range r.irlsS {
			r.irlsS[i] /= maxS
		}
	}
	maxX := 0.0
	for k := range r.irlsX {
		d := m[k+1] - m[k]
		r.irlsX[k] = math.Pow(d*d+eps*eps, q/2-1)
		if r.irlsX[k] > maxX {
			maxX = r.irlsX[k]
		}
	}
	if maxX > 0 {
		for k := range r.irlsX {
			r.irlsX[k] /= maxX
		}
	}
	return nil
}

// Value returns phi_m(m).
func (r *Regularization) Value(m []float64) float64 {
	var small float64
	for i := 0; i < r.n; i++ {
		d := m[i] - r.Reference[i]
		small += r.cellWeights[i] * r.irlsS[i] * d * d
	}
	var smooth float64
	for k := 0; k < r.n-1; k++ {
		d := m[k+1] - m[k]
		smooth += r.cellWeights[k] * r.irlsX[k] * d * d
	}
	return r.AlphaS*small + r.AlphaX*smooth
}

// Grad returns the gradient of phi_m at m.
func (r *Regularization) Grad(m []float64) []float64 {
	g := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		g[i] = 2 * r.AlphaS * r.cellWeights[i] * r.irlsS[i] * (m[i] - r.Reference[i])
	}
	for k := 0; k < r.n-1; k++ {
		c := 2 * r.AlphaX * r.cellWeights[k] * r.irlsX[k] * (m[k+1] - m[k])
		g[k] -= c
		g[k+1] += c
	}
	return g
}

// ApplyHessian returns H_m x where H_m is the (constant in m) Hessian of
// phi_m.
func (r *Regularization) ApplyHessian(x []float64) []float64 {
	out := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = 2 * r.AlphaS * r.cellWeights[i] * r.irlsS[i] * x[i]
	}
	for k := 0; k < r.n-1; k++ {
		c := 2 * r.AlphaX * r.cellWeights[k] * r.irlsX[k] * (x[k+1] - x[k])
		out[k] -= c
		out[k+1] += c
	}
	return out
}

// HessianDiag returns diag(H_m), used by the Jacobi preconditioner.
func (r *Regularization) HessianDiag() []float64 {
	d := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		d[i] = 2 * r.AlphaS * r.cellWeights[i] * r.irlsS[i]
	}
	for k := 0; k < r.n-1; k++ {
		c := 2 * r.AlphaX * r.cellWeights[k] * r.irlsX[k]
		d[k] += c
		d[k+1] += c
	}
	return d
}

// NCells returns the model cell count.
func (r *Regularization) NCells() int {
	return r.n
}
