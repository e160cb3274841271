package mesh

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometricThicknesses(t *testing.T) {
	t.Run("default discretization", func(t *testing.T) {
		th, err := GeometricThicknesses(1, 30, 25)
		require.NoError(t, err)
		require.Len(t, th, 25)
		for i, v := range th {
			assert.Greater(t, v, 0.0, "thickness %d", i)
			if i > 0 {
				assert.GreaterOrEqual(t, v, th[i-1], "thicknesses must be non-decreasing at %d", i)
			}
		}
		assert.InDelta(t, 1.0, th[0], 1e-12)
		assert.InDelta(t, 30.0, th[24], 1e-9)

		// log spacing: constant ratio between neighbours
		ratio := th[1] / th[0]
		for i := 2; i < len(th); i++ {
			assert.InDelta(t, ratio, th[i]/th[i-1], 1e-9)
		}
	})

	t.Run("single layer", func(t *testing.T) {
		th, err := GeometricThicknesses(5, 100, 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{5}, th)
	})

	t.Run("rejects bad ranges", func(t *testing.T) {
		_, err := GeometricThicknesses(0, 30, 25)
		assert.Error(t, err)
		_, err = GeometricThicknesses(30, 1, 25)
		assert.Error(t, err)
		_, err = GeometricThicknesses(1, 30, 0)
		assert.Error(t, err)
	})
}

func TestWithHalfspace(t *testing.T) {
	th := []float64{1, 2, 4}
	out := WithHalfspace(th)
	require.Len(t, out, 4)
	assert.Equal(t, out[3], out[2], "half-space thickness equals the last finite layer's")
	assert.Nil(t, WithHalfspace(nil))
}

func TestInterfaceDepths(t *testing.T) {
	depths := InterfaceDepths([]float64{20, 40, 160})
	assert.Equal(t, []float64{0, 20, 60, 220}, depths)
}

func TestExpMapRoundTrip(t *testing.T) {
	m := ExpMap{}

	rng := rand.New(rand.NewSource(42))
	cond := make([]float64, 50)
	for i := range cond {
		// positive conductivities across many decades
		cond[i] = math.Pow(10, -6+12*rng.Float64())
	}

	logCond, err := m.Inverse(cond)
	require.NoError(t, err)
	back := m.Forward(logCond)
	for i := range cond {
		assert.InEpsilon(t, cond[i], back[i], 1e-12)
	}
}

func TestExpMapInverseRejectsNonPositive(t *testing.T) {
	m := ExpMap{}
	_, err := m.Inverse([]float64{1, 0, 2})
	assert.Error(t, err)
	_, err = m.Inverse([]float64{-1})
	assert.Error(t, err)
}

func TestNewLayeredModel(t *testing.T) {
	th, err := GeometricThicknesses(1, 30, 25)
	require.NoError(t, err)
	th = WithHalfspace(th)

	model, err := NewLayeredModel(th, math.Log(0.1))
	require.NoError(t, err)
	assert.Equal(t, len(th)+1, model.NParams())
	for _, v := range model.LogConductivity {
		assert.InDelta(t, math.Log(0.1), v, 1e-15)
	}

	_, err = NewLayeredModel(nil, 0)
	assert.Error(t, err)
	_, err = NewLayeredModel([]float64{1, -1}, 0)
	assert.Error(t, err)
	_, err = NewLayeredModel(th, math.Inf(1))
	assert.Error(t, err)
}

func TestStepProfile(t *testing.T) {
	model, err := NewLayeredModel([]float64{10, 20}, 0)
	require.NoError(t, err)

	values := []float64{1, 2, 3}
	depths, vals, err := model.StepProfile(values, 100)
	require.NoError(t, err)
	require.Len(t, depths, 6)
	require.Len(t, vals, 6)
	assert.Equal(t, []float64{0, 10, 10, 30, 30, 100}, depths)
	assert.Equal(t, []float64{1, 1, 2, 2, 3, 3}, vals)

	// A too-shallow maxDepth still leaves the half-space cell its implied
	// thickness, the deepest finite layer's repeated.
	depths, vals, err = model.StepProfile(values, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10, 10, 30, 30, 50}, depths)
	assert.Equal(t, []float64{1, 1, 2, 2, 3, 3}, vals)

	_, _, err = model.StepProfile([]float64{1}, 100)
	assert.Error(t, err)
}
