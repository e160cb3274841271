package inversion_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sounding.report/internal/forward"
	"github.com/banshee-data/sounding.report/internal/inversion"
	"github.com/banshee-data/sounding.report/internal/mesh"
	"github.com/banshee-data/sounding.report/internal/survey"
)

// TestThreeLayerRecovery runs the full workflow on a synthetic three-layer
// earth: a conductive layer (1 S/m) between 20 m and 60 m depth inside a
// 0.1 S/m background. The recovered model must fit the data near the noise
// floor and reproduce the conductive middle layer qualitatively.
func TestThreeLayerRecovery(t *testing.T) {
	if testing.Short() {
		t.Skip("full inversion run")
	}

	freqs := []float64{382, 1822, 7970, 35920, 130100}
	svy, err := survey.Build(freqs, 30, 8)
	require.NoError(t, err)

	// Synthetic observations from the true three-layer model.
	trueSim, err := forward.NewSimulation1D(svy, []float64{20, 40})
	require.NoError(t, err)
	trueLog := []float64{math.Log(0.1), math.Log(1.0), math.Log(0.1)}
	observed, err := trueSim.Predict(trueLog)
	require.NoError(t, err)

	maxAbs := 0.0
	for _, d := range observed {
		if a := math.Abs(d); a > maxAbs {
			maxAbs = a
		}
	}
	unc := make([]float64, len(observed))
	for i, d := range observed {
		unc[i] = 0.05*math.Abs(d) + 1e-3*maxAbs
	}

	// Inversion discretization: 25 log-spaced layers plus the half-space.
	th, err := mesh.GeometricThicknesses(1, 30, 25)
	require.NoError(t, err)
	sim, err := forward.NewSimulation1D(svy, th)
	require.NoError(t, err)

	ref := make([]float64, sim.NParams())
	for i := range ref {
		ref[i] = math.Log(0.1)
	}
	dm, err := inversion.NewDataMisfit(observed, unc)
	require.NoError(t, err)
	// Equal smallness and smoothness: the reference model already matches the
	// true background, so a firm pull toward it keeps the basement honest
	// while the data carves out the conductor.
	reg, err := inversion.NewRegularization(sim.NParams(), 1.0, 1.0, ref)
	require.NoError(t, err)

	inv := inversion.NewInversion(sim, dm, reg)
	res, err := inv.Run(context.Background(), ref)
	require.NoError(t, err)
	require.NotEmpty(t, res.Iterations)

	// Data fit near the noise floor.
	pred, err := sim.Predict(res.Model)
	require.NoError(t, err)
	phiD, err := dm.Value(pred)
	require.NoError(t, err)
	assert.Less(t, phiD, 3*float64(dm.NData()), "recovered model should fit near target misfit")

	// Qualitative three-layer structure: mean log-conductivity in the
	// conductor's depth range exceeds the shallow and deep background.
	bounds := mesh.InterfaceDepths(th)
	center := func(i int) float64 {
		if i < len(th) {
			return (bounds[i] + bounds[i+1]) / 2
		}
		return bounds[len(bounds)-1] + th[len(th)-1]/2
	}
	var shallow, middle, deep []float64
	for i := 0; i < sim.NParams(); i++ {
		c := center(i)
		switch {
		case c < 15:
			shallow = append(shallow, res.Model[i])
		case c >= 25 && c <= 55:
			middle = append(middle, res.Model[i])
		case c > 90:
			deep = append(deep, res.Model[i])
		}
	}
	require.NotEmpty(t, shallow)
	require.NotEmpty(t, middle)
	require.NotEmpty(t, deep)

	assert.Greater(t, mean(middle), mean(shallow)+0.2,
		"conductive layer should stand out against the shallow background")
	assert.Greater(t, mean(middle), mean(deep)+0.2,
		"conductive layer should stand out against the basement")

	// The most conductive recovered cell sits in the sensed depth range.
	best := 0
	for i, v := range res.Model {
		if v > res.Model[best] {
			best = i
		}
	}
	assert.InDelta(t, 40, center(best), 40, "peak conductivity should sit near the true conductor")
}

func mean(xs []float64) float64 {
	var s float64
	for _, v := range xs {
		s += v
	}
	return s / float64(len(xs))
}
