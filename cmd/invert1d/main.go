// Command invert1d recovers a 1D layered conductivity model from a
// frequency-domain electromagnetic sounding. It loads the sounding,
// runs a regularized Gauss-Newton inversion with IRLS sparsity, and
// writes plots, an HTML convergence report, and an xlsx workbook.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/banshee-data/sounding.report/internal/config"
	"github.com/banshee-data/sounding.report/internal/db"
	"github.com/banshee-data/sounding.report/internal/emdata"
	"github.com/banshee-data/sounding.report/internal/forward"
	"github.com/banshee-data/sounding.report/internal/inversion"
	"github.com/banshee-data/sounding.report/internal/mesh"
	"github.com/banshee-data/sounding.report/internal/render"
	"github.com/banshee-data/sounding.report/internal/survey"
)

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func main() {
	var dataPath string
	var dataURL string
	var configPath string
	var outDir string
	var dbPath string
	var migrationsDir string
	var trueCondStr string
	var trueThickStr string

	flag.StringVar(&dataPath, "data", "", "path to sounding data file")
	flag.StringVar(&dataURL, "url", "", "optional URL of a tar.gz archive to download before loading -data")
	flag.StringVar(&configPath, "config", "", "optional tuning config JSON (defaults applied for omitted fields)")
	flag.StringVar(&outDir, "out", "out", "output directory for plots and reports")
	flag.StringVar(&dbPath, "db", "", "optional sqlite database to record the run")
	flag.StringVar(&migrationsDir, "migrations", "migrations", "path to database migrations")
	flag.StringVar(&trueCondStr, "true-model", "", "optional comma-separated true conductivities in S/m to overlay on the model plot")
	flag.StringVar(&trueThickStr, "true-thicknesses", "", "comma-separated true layer thicknesses in m, one fewer than -true-model")
	flag.Parse()

	if dataPath == "" {
		log.Fatalf("-data must be provided")
	}

	cfg := config.EmptyTuningConfig()
	if configPath != "" {
		loaded, err := config.LoadTuningConfig(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if dataURL != "" {
		log.Printf("fetching %s", dataURL)
		if err := emdata.Fetch(ctx, dataURL, filepath.Dir(dataPath)); err != nil {
			log.Fatalf("fetch data: %v", err)
		}
	}

	sounding, err := emdata.LoadSounding(dataPath)
	if err != nil {
		log.Fatalf("load sounding: %v", err)
	}
	log.Printf("loaded %d datums at %d frequencies from %s", sounding.NDatums(), len(sounding.Frequencies), dataPath)

	svy, err := survey.Build(sounding.Frequencies, cfg.GetSourceHeight(), cfg.GetReceiverOffset())
	if err != nil {
		log.Fatalf("build survey: %v", err)
	}

	thicknesses, err := mesh.GeometricThicknesses(cfg.GetMinThickness(), cfg.GetMaxThickness(), cfg.GetLayerCount())
	if err != nil {
		log.Fatalf("build mesh: %v", err)
	}

	sim, err := forward.NewSimulation1D(svy, thicknesses)
	if err != nil {
		log.Fatalf("build simulation: %v", err)
	}

	unc, err := sounding.Uncertainties(cfg.GetUncertaintyFloor(), cfg.GetUncertaintyRelative())
	if err != nil {
		log.Fatalf("assign uncertainties: %v", err)
	}
	misfit, err := inversion.NewDataMisfit(sounding.Data, unc)
	if err != nil {
		log.Fatalf("build misfit: %v", err)
	}

	startLog := math.Log(cfg.GetStartConductivity())
	reference := make([]float64, sim.NParams())
	for i := range reference {
		reference[i] = startLog
	}
	reg, err := inversion.NewRegularization(sim.NParams(), cfg.GetAlphaS(), cfg.GetAlphaX(), reference)
	if err != nil {
		log.Fatalf("build regularization: %v", err)
	}

	inv := inversion.NewInversion(sim, misfit, reg)
	inv.MaxIter = cfg.GetMaxIterations()
	inv.Beta.Ratio = cfg.GetBetaRatio()
	inv.Schedule.CoolingFactor = cfg.GetCoolingFactor()
	inv.Schedule.CoolingRate = cfg.GetCoolingRate()
	inv.ChiFactor = cfg.GetChiFactor()
	inv.NormP = cfg.GetNormP()
	inv.NormQ = cfg.GetNormQ()
	inv.MaxIRLSIters = cfg.GetMaxIRLSIterations()
	inv.EpsilonFactor = cfg.GetEpsilonFactor()
	inv.Opt.MaxIterLS = cfg.GetMaxLineSearch()
	inv.Opt.MaxIterCG = cfg.GetMaxCGIterations()
	inv.Opt.TolCG = cfg.GetCGTolerance()

	if dbPath != "" {
		database, err := db.Open(dbPath)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer database.Close()
		if err := database.MigrateUp(migrationsDir); err != nil {
			log.Fatalf("migrate db: %v", err)
		}

		cfgJSON, err := json.Marshal(cfg)
		if err != nil {
			log.Fatalf("marshal config: %v", err)
		}
		store := db.NewRunStore(database)
		runID, err := store.CreateRun(dataPath, cfgJSON)
		if err != nil {
			log.Fatalf("create run: %v", err)
		}
		log.Printf("recording run %s in %s", runID, dbPath)
		inv.Saver = &db.IterationSaver{Store: store, RunID: runID}
	}

	result, err := inv.Run(ctx, reference)
	if err != nil {
		log.Fatalf("inversion failed: %v", err)
	}
	if !result.Converged {
		log.Printf("inversion stopped without reaching the target misfit")
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}

	var curves []render.ModelCurve
	if trueCondStr != "" {
		trueCond, err := parseFloats(trueCondStr)
		if err != nil {
			log.Fatalf("invalid -true-model: %v", err)
		}
		trueThick, err := parseFloats(trueThickStr)
		if err != nil {
			log.Fatalf("invalid -true-thicknesses: %v", err)
		}
		if len(trueCond) != len(trueThick)+1 {
			log.Fatalf("got %d true conductivities for %d thicknesses, want one more", len(trueCond), len(trueThick))
		}
		var mapping mesh.ExpMap
		trueLog, err := mapping.Inverse(trueCond)
		if err != nil {
			log.Fatalf("invalid -true-model: %v", err)
		}
		curves = append(curves, render.ModelCurve{Label: "true", Thicknesses: trueThick, LogConductivity: trueLog})
	}
	curves = append(curves,
		render.ModelCurve{Label: "least-squares", Thicknesses: thicknesses, LogConductivity: result.LeastSquaresModel},
		render.ModelCurve{Label: "sparse", Thicknesses: thicknesses, LogConductivity: result.Model},
	)
	depths := mesh.InterfaceDepths(mesh.WithHalfspace(thicknesses))
	maxDepth := depths[len(depths)-1] * 1.2
	modelPlot := filepath.Join(outDir, "models.png")
	if err := render.SaveModelPlot(modelPlot, maxDepth, curves...); err != nil {
		log.Fatalf("model plot: %v", err)
	}

	final := result.Iterations[len(result.Iterations)-1]
	fitPlot := filepath.Join(outDir, "data_fit.png")
	if err := render.SaveDataFitPlot(fitPlot, svy, sounding.Data, final.Predicted); err != nil {
		log.Fatalf("data fit plot: %v", err)
	}

	report := filepath.Join(outDir, "convergence.html")
	target := cfg.GetChiFactor() * float64(misfit.NData())
	if err := render.SaveConvergenceReport(report, result.Iterations, target); err != nil {
		log.Fatalf("convergence report: %v", err)
	}

	workbook := filepath.Join(outDir, "iterations.xlsx")
	if err := render.SaveIterationWorkbook(workbook, thicknesses, result.Iterations); err != nil {
		log.Fatalf("iteration workbook: %v", err)
	}

	log.Printf("wrote %s, %s, %s, %s", modelPlot, fitPlot, report, workbook)
}
