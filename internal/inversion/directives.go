package inversion

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BetaEstimator picks the initial trade-off parameter from the ratio of the
// misfit and regularization Hessians' Rayleigh quotients on a random probe
// vector, scaled by Ratio. A deterministic seed keeps runs reproducible.
type BetaEstimator struct {
	Ratio float64
	Seed  int64
}

// Estimate computes beta0 at the starting model's linearization.
func (b BetaEstimator) Estimate(j *mat.Dense, wd []float64, reg *Regularization) float64 {
	nd, np := j.Dims()
	rng := rand.New(rand.NewSource(b.Seed))

	x := make([]float64, np)
	for i := range x {
		x[i] = rng.NormFloat64()
	}
	norm := math.Sqrt(floats.Dot(x, x))
	for i := range x {
		x[i] /= norm
	}

	jx := mat.NewVecDense(nd, nil)
	jx.MulVec(j, mat.NewVecDense(np, x))
	var top float64
	for i := 0; i < nd; i++ {
		v := jx.AtVec(i) * wd[i]
		top += v * v
	}
	top *= 2

	hx := reg.ApplyHessian(x)
	bottom := floats.Dot(x, hx)
	if bottom <= 0 {
		return b.Ratio
	}
	return b.Ratio * top / bottom
}

// BetaSchedule cools the trade-off parameter by CoolingFactor every
// CoolingRate outer iterations during the least-squares phase.
type BetaSchedule struct {
	CoolingFactor float64
	CoolingRate   int
}

// Apply returns the (possibly cooled) beta for the given iteration.
func (s BetaSchedule) Apply(iter int, beta float64) float64 {
	if s.CoolingRate <= 0 || s.CoolingFactor <= 1 {
		return beta
	}
	if iter > 0 && iter%s.CoolingRate == 0 {
		return beta / s.CoolingFactor
	}
	return beta
}

// SensitivityWeights computes per-cell regularization weights from the
// root-sum-square columns of the current Jacobian, normalized to a maximum of
// one and floored at Threshold. The floor matters both ways: without it deep
// cells the data barely sees cost nothing to perturb, and the optimizer parks
// spurious conductivity below the sensed depth range instead of keeping those
// cells anchored at the reference model.
type SensitivityWeights struct {
	Threshold float64
}

// Compute returns the weight vector for the given Jacobian.
func (s SensitivityWeights) Compute(j *mat.Dense) []float64 {
	nd, np := j.Dims()
	w := make([]float64, np)
	maxW := 0.0
	for col := 0; col < np; col++ {
		var sum float64
		for row := 0; row < nd; row++ {
			v := j.At(row, col)
			sum += v * v
		}
		w[col] = math.Sqrt(sum)
		if w[col] > maxW {
			maxW = w[col]
		}
	}
	if maxW == 0 {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	floor := s.Threshold
	if floor <= 0 {
		floor = 1e-12
	}
	for i := range w {
		w[i] /= maxW
		if w[i] < floor {
			w[i] = floor
		}
	}
	return w
}

// IterationRecord is one outer-iteration snapshot: the state the directives
// saw plus the model and prediction that produced it.
type IterationRecord struct {
	Iteration  int
	Beta       float64
	PhiD       float64
	PhiM       float64
	IRLSActive bool
	Model      []float64
	Predicted  []float64
}

// SnapshotSaver persists per-iteration models and predicted data. The run
// store implements it; a nil saver disables persistence.
type SnapshotSaver interface {
	SaveIteration(rec IterationRecord) error
}
