package render

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sounding.report/internal/mesh"
	"github.com/banshee-data/sounding.report/internal/survey"
)

var (
	colorTrue     = color.RGBA{R: 50, G: 50, B: 50, A: 255}
	colorSmooth   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorSparse   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	colorObserved = color.RGBA{R: 50, G: 50, B: 50, A: 255}
)

// ModelCurve is one conductivity profile to draw on the model plot.
type ModelCurve struct {
	Label           string
	Thicknesses     []float64
	LogConductivity []float64
}

// SaveModelPlot renders recovered conductivity profiles as step curves
// against depth and writes a PNG. Conductivity is shown on a log axis;
// depth increases downward.
func SaveModelPlot(path string, maxDepth float64, curves ...ModelCurve) error {
	if len(curves) == 0 {
		return fmt.Errorf("no model curves to plot")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	p := plot.New()
	p.Title.Text = "Recovered Conductivity Models"
	p.X.Label.Text = "Conductivity (S/m)"
	p.Y.Label.Text = "Depth (m)"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}

	palette := []color.Color{colorTrue, colorSmooth, colorSparse}
	for i, curve := range curves {
		model, err := mesh.NewLayeredModel(curve.Thicknesses, 0)
		if err != nil {
			return fmt.Errorf("model %q: %w", curve.Label, err)
		}
		var mapping mesh.ExpMap
		cond := mapping.Forward(curve.LogConductivity)
		depths, vals, err := model.StepProfile(cond, maxDepth)
		if err != nil {
			return fmt.Errorf("model %q: %w", curve.Label, err)
		}

		pts := make(plotter.XYs, len(depths))
		for j := range depths {
			// Depth grows downward on the plot.
			pts[j] = plotter.XY{X: vals[j], Y: -depths[j]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = palette[i%len(palette)]
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(curve.Label, line)
	}

	p.Legend.Top = false
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = 10

	if err := p.Save(6*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save model plot: %w", err)
	}
	return nil
}

// SaveDataFitPlot renders observed versus predicted amplitudes per
// frequency for both components and writes a PNG. Both axes are
// logarithmic, matching the decades-wide spread of frequency-domain
// soundings.
func SaveDataFitPlot(path string, svy *survey.Survey, observed, predicted []float64) error {
	freqs := svy.Frequencies()
	if len(observed) != 2*len(freqs) || len(predicted) != 2*len(freqs) {
		return fmt.Errorf("data length %d/%d does not match %d frequencies", len(observed), len(predicted), len(freqs))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	p := plot.New()
	p.Title.Text = "Observed vs Predicted Data"
	p.X.Label.Text = "Frequency (Hz)"
	p.Y.Label.Text = "|Hs/Hp| (ppm)"
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	addSeries := func(label string, data []float64, offset int, c color.Color, dashed bool) error {
		pts := make(plotter.XYs, 0, len(freqs))
		for i, f := range freqs {
			v := math.Abs(data[2*i+offset])
			if v == 0 {
				continue
			}
			pts = append(pts, plotter.XY{X: f, Y: v})
		}
		line, sc, err := plotter.NewLinePoints(pts)
		if err != nil {
			return err
		}
		line.Color = c
		sc.Color = c
		if dashed {
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(line, sc)
		p.Legend.Add(label, line)
		return nil
	}

	if err := addSeries("observed real", observed, 0, colorObserved, false); err != nil {
		return err
	}
	if err := addSeries("observed imag", observed, 1, colorObserved, true); err != nil {
		return err
	}
	if err := addSeries("predicted real", predicted, 0, colorSparse, false); err != nil {
		return err
	}
	if err := addSeries("predicted imag", predicted, 1, colorSparse, true); err != nil {
		return err
	}

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = -10

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save data fit plot: %w", err)
	}
	return nil
}
