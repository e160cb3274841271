package inversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// buildOperator assembles a small normal operator with a fixed Jacobian and
// unit-weight misfit for solver tests.
func buildOperator(t *testing.T, beta float64) (normalOperator, int) {
	t.Helper()
	// 4 data, 3 parameters, full column rank.
	J := mat.NewDense(4, 3, []float64{
		1, 0.5, 0,
		0, 1, 0.25,
		0.5, 0, 1,
		0.2, 0.3, 0.4,
	})
	wd := []float64{1, 1, 1, 1}
	reg, err := NewRegularization(3, 1, 1, make([]float64, 3))
	require.NoError(t, err)
	return normalOperator{j: J, wd: wd, reg: reg, beta: beta}, 3
}

// denseOperator materializes the operator by applying it to unit vectors.
func denseOperator(op normalOperator, n int) *mat.Dense {
	H := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		e := make([]float64, n)
		e[j] = 1
		col := op.apply(e)
		for i := 0; i < n; i++ {
			H.Set(i, j, col[i])
		}
	}
	return H
}

func TestSolveCGMatchesDirectSolve(t *testing.T) {
	op, n := buildOperator(t, 0.5)
	o := GaussNewtonCG{MaxIterLS: 20, MaxIterCG: 100, TolCG: 1e-12}

	grad := []float64{1, -2, 3}
	delta := o.solveCG(op, grad)

	// Direct solve of H delta = -grad.
	H := denseOperator(op, n)
	rhs := mat.NewVecDense(n, []float64{-1, 2, -3})
	var want mat.VecDense
	require.NoError(t, want.SolveVec(H, rhs))

	for i := 0; i < n; i++ {
		assert.InDelta(t, want.AtVec(i), delta[i], 1e-8, "component %d", i)
	}
}

func TestSolveCGZeroGradient(t *testing.T) {
	op, n := buildOperator(t, 1)
	o := DefaultGaussNewtonCG()
	delta := o.solveCG(op, make([]float64, n))
	assert.Equal(t, make([]float64, n), delta)
}

func TestLineSearchQuadratic(t *testing.T) {
	o := DefaultGaussNewtonCG()

	// f(x) = (x-3)^2, minimized from x=0 along delta = +6 (the Newton step).
	objective := func(m []float64) (float64, error) {
		d := m[0] - 3
		return d * d, nil
	}
	m := []float64{0}
	grad := []float64{-6} // f'(0)
	delta := []float64{3} // Newton step for the quadratic

	mNew, phiNew, ok, err := o.lineSearch(objective, m, delta, grad, 9)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 3.0, mNew[0], 1e-12)
	assert.InDelta(t, 0.0, phiNew, 1e-12)
}

func TestLineSearchRejectsAscentDirection(t *testing.T) {
	o := DefaultGaussNewtonCG()
	objective := func(m []float64) (float64, error) { return m[0] * m[0], nil }

	_, _, ok, err := o.lineSearch(objective, []float64{1}, []float64{1}, []float64{2}, 1)
	require.NoError(t, err)
	assert.False(t, ok, "positive slope direction must be rejected")
}
