package inversion

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/sounding.report/internal/monitoring"
)

// Simulator is the forward-modelling contract the inversion consumes: a
// differentiable map from a model vector to a predicted data vector with the
// same shape and ordering as the observed vector.
type Simulator interface {
	Predict(m []float64) ([]float64, error)
	Jacobian(m []float64) (*mat.Dense, error)
	NParams() int
}

// Inversion drives the regularized Gauss-Newton iteration with the directive
// stack applied once per outer iteration: sensitivity reweighting, beta
// estimation and cooling, the IRLS schedule, and optional snapshot
// persistence.
type Inversion struct {
	Sim    Simulator
	Misfit *DataMisfit
	Reg    *Regularization
	Opt    GaussNewtonCG

	// MaxIter caps outer Gauss-Newton iterations.
	MaxIter int
	// TolF is the relative objective-decrease convergence tolerance,
	// checked only once IRLS is active.
	TolF float64

	Beta        BetaEstimator
	Schedule    BetaSchedule
	Sensitivity SensitivityWeights

	// ChiFactor scales the target misfit: phi_d* = ChiFactor * NData.
	ChiFactor float64
	// NormP and NormQ are the smallness and smoothness norm exponents the
	// IRLS phase drives toward; 0 for both gives blocky recovered models.
	NormP float64
	NormQ float64
	// MaxIRLSIters bounds the reweighting passes after the least-squares
	// phase reaches target.
	MaxIRLSIters int
	// EpsilonFactor sets the IRLS stabilizer as a fraction of the largest
	// model deviation when sparsity starts.
	EpsilonFactor float64

	// Saver persists per-iteration snapshots; nil disables persistence.
	Saver SnapshotSaver
}

// Result is what the caller keeps: the final sparse model, the intermediate
// least-squares snapshot taken when the misfit first reached target, and the
// per-iteration history.
type Result struct {
	Model             []float64
	LeastSquaresModel []float64
	Iterations        []IterationRecord
	Converged         bool
}

// NewInversion wires an inversion with default settings.
func NewInversion(sim Simulator, misfit *DataMisfit, reg *Regularization) *Inversion {
	return &Inversion{
		Sim:           sim,
		Misfit:        misfit,
		Reg:           reg,
		Opt:           DefaultGaussNewtonCG(),
		MaxIter:       40,
		TolF:          1e-4,
		Beta:          BetaEstimator{Ratio: 10, Seed: 1},
		Schedule:      BetaSchedule{CoolingFactor: 2, CoolingRate: 1},
		Sensitivity:   SensitivityWeights{Threshold: 0.1},
		ChiFactor:     1,
		NormP:         0,
		NormQ:         0,
		MaxIRLSIters:  15,
		EpsilonFactor: 0.05,
	}
}

// Run executes the inversion from the starting model. The starting vector is
// not mutated; the survey and data objects are read-only throughout.
func (inv *Inversion) Run(ctx context.Context, start []float64) (*Result, error) {
	if len(start) != inv.Sim.NParams() {
		return nil, fmt.Errorf("starting model has %d parameters, simulation expects %d", len(start), inv.Sim.NParams())
	}
	if inv.Reg.NCells() != len(start) {
		return nil, fmt.Errorf("regularization has %d cells, model has %d", inv.Reg.NCells(), len(start))
	}

	m := append([]float64(nil), start...)
	target := inv.ChiFactor * float64(inv.Misfit.NData())

	var (
		beta       float64
		irlsActive bool
		irlsIters  int
		eps        float64
		lsModel    []float64
		recs       []IterationRecord
		converged  bool
	)

	for iter := 0; iter < inv.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pred, err := inv.Sim.Predict(m)
		if err != nil {
			return nil, fmt.Errorf("iteration %d forward: %w", iter, err)
		}
		J, err := inv.Sim.Jacobian(m)
		if err != nil {
			return nil, fmt.Errorf("iteration %d jacobian: %w", iter, err)
		}
		phiD, err := inv.Misfit.Value(pred)
		if err != nil {
			return nil, fmt.Errorf("iteration %d misfit: %w", iter, err)
		}

		// Directive: recompute sensitivity-based cell weights.
		if err := inv.Reg.SetCellWeights(inv.Sensitivity.Compute(J)); err != nil {
			return nil, fmt.Errorf("iteration %d sensitivity weights: %w", iter, err)
		}

		// Directive: estimate beta0 once, then cool while chasing target.
		if iter == 0 {
			beta = inv.Beta.Estimate(J, inv.Misfit.Weights(), inv.Reg)
			monitoring.Logf("iteration 0: estimated beta0 = %.4g (target phi_d = %.4g)", beta, target)
		} else if !irlsActive {
			beta = inv.Schedule.Apply(iter, beta)
		}

		// Directive: IRLS phase transition and reweighting.
		if !irlsActive && phiD <= target {
			irlsActive = true
			lsModel = append([]float64(nil), m...)
			eps = inv.irlsEpsilon(m)
			monitoring.Logf("iteration %d: phi_d %.4g reached target %.4g, starting IRLS (eps = %.4g)", iter, phiD, target, eps)
		}
		if irlsActive {
			if irlsIters >= inv.MaxIRLSIters {
				converged = true
				break
			}
			if err := inv.Reg.UpdateIRLS(m, eps, inv.NormP, inv.NormQ); err != nil {
				return nil, fmt.Errorf("iteration %d IRLS update: %w", iter, err)
			}
			irlsIters++
			// Rescale beta to hold the misfit at target while the
			// reweighted penalty reshapes the model. A dead band around
			// target keeps beta from see-sawing between passes.
			if phiD > 0 && math.Abs(phiD-target) > 0.2*target {
				adj := target / phiD
				if adj < 0.5 {
					adj = 0.5
				} else if adj > 2 {
					adj = 2
				}
				beta *= adj
			}
		}

		phiM := inv.Reg.Value(m)
		rec := IterationRecord{
			Iteration:  iter,
			Beta:       beta,
			PhiD:       phiD,
			PhiM:       phiM,
			IRLSActive: irlsActive,
			Model:      append([]float64(nil), m...),
			Predicted:  append([]float64(nil), pred...),
		}
		recs = append(recs, rec)
		if inv.Saver != nil {
			if err := inv.Saver.SaveIteration(rec); err != nil {
				return nil, fmt.Errorf("iteration %d snapshot: %w", iter, err)
			}
		}
		monitoring.Logf("iteration %d: beta=%.4g phi_d=%.4g phi_m=%.4g irls=%v", iter, beta, phiD, phiM, irlsActive)

		// Gauss-Newton step: gradient, preconditioned CG, line search.
		grad := inv.gradient(J, pred, beta, m)
		op := normalOperator{j: J, wd: inv.Misfit.Weights(), reg: inv.Reg, beta: beta}
		delta := inv.Opt.solveCG(op, grad)

		betaNow := beta
		objective := func(x []float64) (float64, error) {
			p, err := inv.Sim.Predict(x)
			if err != nil {
				return 0, err
			}
			pd, err := inv.Misfit.Value(p)
			if err != nil {
				return 0, err
			}
			return pd + betaNow*inv.Reg.Value(x), nil
		}

		phi := phiD + beta*phiM
		mNew, phiNew, ok, err := inv.Opt.lineSearch(objective, m, delta, grad, phi)
		if err != nil {
			return nil, fmt.Errorf("iteration %d line search: %w", iter, err)
		}
		if !ok {
			monitoring.Logf("iteration %d: line search stalled, stopping", iter)
			converged = irlsActive
			break
		}

		rel := math.Abs(phi-phiNew) / math.Max(math.Abs(phi), 1)
		m = mNew
		if irlsActive && rel < inv.TolF {
			converged = true
			break
		}
	}

	if lsModel == nil {
		lsModel = append([]float64(nil), m...)
	}
	return &Result{
		Model:             m,
		LeastSquaresModel: lsModel,
		Iterations:        recs,
		Converged:         converged,
	}, nil
}

// gradient assembles 2 J^T Wd^2 r + beta * grad phi_m.
func (inv *Inversion) gradient(J *mat.Dense, pred []float64, beta float64, m []float64) []float64 {
	wr, _ := inv.Misfit.WeightedResidual(pred)
	wd := inv.Misfit.Weights()
	nd, np := J.Dims()

	tmp := mat.NewVecDense(nd, nil)
	for i := 0; i < nd; i++ {
		tmp.SetVec(i, 2*wd[i]*wr[i])
	}
	gd := mat.NewVecDense(np, nil)
	gd.MulVec(J.T(), tmp)

	gm := inv.Reg.Grad(m)
	out := make([]float64, np)
	for i := range out {
		out[i] = gd.AtVec(i) + beta*gm[i]
	}
	return out
}

// irlsEpsilon fixes the sparsity stabilizer from the model deviation scale
// at the moment IRLS starts. A hard floor keeps the (x^2+eps^2)^(p/2-1)
// weights finite even for a model equal to its reference.
func (inv *Inversion) irlsEpsilon(m []float64) float64 {
	maxDev := 0.0
	for i, v := range m {
		d := math.Abs(v - inv.Reg.Reference[i])
		if d > maxDev {
			maxDev = d
		}
	}
	eps := inv.EpsilonFactor * maxDev
	if eps < 1e-8 {
		eps = 1e-8
	}
	return eps
}
