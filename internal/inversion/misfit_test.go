package inversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDataMisfit(t *testing.T) {
	t.Run("rejects non-positive uncertainties", func(t *testing.T) {
		_, err := NewDataMisfit([]float64{1, 2}, []float64{0.1, 0})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "strictly positive")

		_, err = NewDataMisfit([]float64{1}, []float64{-0.1})
		require.Error(t, err)
	})

	t.Run("rejects length mismatch", func(t *testing.T) {
		_, err := NewDataMisfit([]float64{1, 2}, []float64{0.1})
		require.Error(t, err)
	})

	t.Run("rejects empty data", func(t *testing.T) {
		_, err := NewDataMisfit(nil, nil)
		require.Error(t, err)
	})
}

func TestDataMisfitValue(t *testing.T) {
	dm, err := NewDataMisfit([]float64{10, -5}, []float64{2, 1})
	require.NoError(t, err)

	t.Run("zero at the observed data", func(t *testing.T) {
		v, err := dm.Value([]float64{10, -5})
		require.NoError(t, err)
		assert.Zero(t, v)
	})

	t.Run("weighted squared residuals", func(t *testing.T) {
		// residuals (2, -1), weights (1/2, 1): 1 + 1 = 2
		v, err := dm.Value([]float64{12, -6})
		require.NoError(t, err)
		assert.InDelta(t, 2.0, v, 1e-12)
	})

	t.Run("shape mismatch propagates", func(t *testing.T) {
		_, err := dm.Value([]float64{1})
		assert.Error(t, err)
	})
}

func TestWeightedResidual(t *testing.T) {
	dm, err := NewDataMisfit([]float64{1, 2}, []float64{0.5, 0.25})
	require.NoError(t, err)

	r, err := dm.WeightedResidual([]float64{2, 1})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, r[0], 1e-12)  // (2-1)/0.5
	assert.InDelta(t, -4.0, r[1], 1e-12) // (1-2)/0.25
}
