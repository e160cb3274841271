package inversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSensitivityWeightsFloorAnchorsBlindCells(t *testing.T) {
	// Column 0 dominates, column 2 is nearly invisible to the data. The
	// weights must normalize to a maximum of one and keep the blind column
	// at the floor so its cell stays tied to the reference model.
	j := mat.NewDense(2, 3, []float64{
		1.0, 0.5, 1e-6,
		1.0, 0.5, 1e-6,
	})

	w := SensitivityWeights{Threshold: 0.1}.Compute(j)
	require.Len(t, w, 3)
	assert.InDelta(t, 1.0, w[0], 1e-12)
	assert.InDelta(t, 0.5, w[1], 1e-12)
	assert.InDelta(t, 0.1, w[2], 1e-12, "weakly sensed cells keep the floor weight")
}

func TestSensitivityWeightsZeroJacobian(t *testing.T) {
	w := SensitivityWeights{Threshold: 0.1}.Compute(mat.NewDense(2, 3, nil))
	assert.Equal(t, []float64{1, 1, 1}, w)
}

func TestBetaScheduleCooling(t *testing.T) {
	s := BetaSchedule{CoolingFactor: 2, CoolingRate: 1}
	assert.InDelta(t, 8.0, s.Apply(0, 8), 1e-15, "no cooling on the first iteration")
	assert.InDelta(t, 4.0, s.Apply(1, 8), 1e-15)
	assert.InDelta(t, 8.0, BetaSchedule{}.Apply(3, 8), 1e-15, "zero-value schedule is a no-op")
}
