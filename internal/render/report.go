package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/sounding.report/internal/inversion"
)

// SaveConvergenceReport writes an HTML page of interactive convergence
// charts for an inversion run: data misfit with its target, model norm,
// and the beta cooling schedule, all per outer iteration.
func SaveConvergenceReport(path string, history []inversion.IterationRecord, targetMisfit float64) error {
	if len(history) == 0 {
		return fmt.Errorf("no iteration history to report")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	iters := make([]string, len(history))
	phiD := make([]opts.LineData, len(history))
	phiM := make([]opts.LineData, len(history))
	beta := make([]opts.LineData, len(history))
	target := make([]opts.LineData, len(history))
	for i, rec := range history {
		iters[i] = fmt.Sprintf("%d", rec.Iteration)
		phiD[i] = opts.LineData{Value: rec.PhiD}
		phiM[i] = opts.LineData{Value: rec.PhiM}
		beta[i] = opts.LineData{Value: rec.Beta}
		target[i] = opts.LineData{Value: targetMisfit}
	}

	misfitChart := charts.NewLine()
	misfitChart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Inversion Convergence"}),
		charts.WithTitleOpts(opts.Title{Title: "Data Misfit", Subtitle: fmt.Sprintf("target=%.1f", targetMisfit)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "log", Name: "phi_d"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "iteration"}),
	)
	misfitChart.SetXAxis(iters).
		AddSeries("phi_d", phiD).
		AddSeries("target", target, charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))

	modelChart := charts.NewLine()
	modelChart.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Model Norm"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "phi_m"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "iteration"}),
	)
	modelChart.SetXAxis(iters).AddSeries("phi_m", phiM)

	betaChart := charts.NewLine()
	betaChart.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Trade-off Parameter"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "log", Name: "beta"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "iteration"}),
	)
	betaChart.SetXAxis(iters).AddSeries("beta", beta)

	page := components.NewPage()
	page.AddCharts(misfitChart, modelChart, betaChart)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
