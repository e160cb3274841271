package inversion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// GaussNewtonCG holds the optimizer caps. Outer Gauss-Newton iterations live
// in the Inversion driver; this type owns one step: the inner preconditioned
// conjugate-gradient solve of the normal equations and the backtracking line
// search along the resulting direction.
type GaussNewtonCG struct {
	// MaxIterLS caps backtracking line-search halvings.
	MaxIterLS int
	// MaxIterCG caps inner conjugate-gradient iterations.
	MaxIterCG int
	// TolCG is the relative residual tolerance of the inner solve.
	TolCG float64
}

// DefaultGaussNewtonCG returns the standard optimizer settings.
func DefaultGaussNewtonCG() GaussNewtonCG {
	return GaussNewtonCG{MaxIterLS: 20, MaxIterCG: 30, TolCG: 1e-3}
}

// normalOperator bundles everything needed for Hessian-vector products of the
// combined objective phi_d + beta*phi_m at a linearization point.
type normalOperator struct {
	j    *mat.Dense
	wd   []float64
	reg  *Regularization
	beta float64
}

// apply returns (2 J^T Wd^2 J + beta H_m) x.
func (op normalOperator) apply(x []float64) []float64 {
	nd, np := op.j.Dims()
	xv := mat.NewVecDense(np, x)

	jx := mat.NewVecDense(nd, nil)
	jx.MulVec(op.j, xv)
	for i := 0; i < nd; i++ {
		w := op.wd[i]
		jx.SetVec(i, 2*w*w*jx.AtVec(i))
	}
	out := mat.NewVecDense(np, nil)
	out.MulVec(op.j.T(), jx)

	hm := op.reg.ApplyHessian(x)
	res := make([]float64, np)
	for i := range res {
		res[i] = out.AtVec(i) + op.beta*hm[i]
	}
	return res
}

// diag returns the diagonal of the normal operator, the Jacobi
// preconditioner rebuilt from the current Jacobian each outer iteration.
func (op normalOperator) diag() []float64 {
	nd, np := op.j.Dims()
	d := make([]float64, np)
	for jcol := 0; jcol < np; jcol++ {
		var s float64
		for i := 0; i < nd; i++ {
			v := op.j.At(i, jcol) * op.wd[i]
			s += v * v
		}
		d[jcol] = 2 * s
	}
	hd := op.reg.HessianDiag()
	for i := range d {
		d[i] += op.beta * hd[i]
		if d[i] <= 0 {
			d[i] = 1 // degenerate diagonal entry; fall back to identity scaling
		}
	}
	return d
}

// solveCG runs Jacobi-preconditioned conjugate gradients on
// (2 J^T Wd^2 J + beta H_m) delta = -grad, returning the search direction.
func (o GaussNewtonCG) solveCG(op normalOperator, grad []float64) []float64 {
	np := len(grad)
	delta := make([]float64, np)

	r := make([]float64, np)
	for i := range r {
		r[i] = -grad[i]
	}
	precond := op.diag()

	z := make([]float64, np)
	for i := range z {
		z[i] = r[i] / precond[i]
	}
	p := append([]float64(nil), z...)

	rz := floats.Dot(r, z)
	r0 := math.Sqrt(floats.Dot(r, r))
	if r0 == 0 {
		return delta
	}

	for iter := 0; iter < o.MaxIterCG; iter++ {
		hp := op.apply(p)
		den := floats.Dot(p, hp)
		if den <= 0 {
			// Direction of non-positive curvature; the finite-difference
			// Jacobian can produce one near convergence. Keep what we have.
			break
		}
		alpha := rz / den
		floats.AddScaled(delta, alpha, p)
		floats.AddScaled(r, -alpha, hp)

		if math.Sqrt(floats.Dot(r, r)) <= o.TolCG*r0 {
			break
		}
		for i := range z {
			z[i] = r[i] / precond[i]
		}
		rzNew := floats.Dot(r, z)
		betaCG := rzNew / rz
		rz = rzNew
		for i := range p {
			p[i] = z[i] + betaCG*p[i]
		}
	}
	return delta
}

// lineSearch backtracks along delta from m until the combined objective
// decreases sufficiently (Armijo condition). Returns the accepted model and
// objective, or ok=false when MaxIterLS halvings fail to find a decrease.
func (o GaussNewtonCG) lineSearch(
	objective func(m []float64) (float64, error),
	m, delta, grad []float64,
	phi0 float64,
) (mNew []float64, phiNew float64, ok bool, err error) {
	const c1 = 1e-4
	slope := floats.Dot(grad, delta)
	if slope >= 0 {
		return nil, 0, false, nil // not a descent direction
	}

	step := 1.0
	trial := make([]float64, len(m))
	for i := 0; i < o.MaxIterLS; i++ {
		copy(trial, m)
		floats.AddScaled(trial, step, delta)
		phi, err := objective(trial)
		if err != nil {
			return nil, 0, false, fmt.Errorf("line search objective: %w", err)
		}
		if phi <= phi0+c1*step*slope {
			return trial, phi, true, nil
		}
		step /= 2
	}
	return nil, 0, false, nil
}
