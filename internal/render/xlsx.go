package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/sounding.report/internal/inversion"
	"github.com/banshee-data/sounding.report/internal/mesh"
)

// SaveIterationWorkbook writes an xlsx workbook for an inversion run: a
// Convergence sheet of per-iteration scalars, a Models sheet of the
// log-conductivity vector per iteration with interface depths, and a
// Predicted sheet of the predicted data per iteration.
func SaveIterationWorkbook(path string, thicknesses []float64, history []inversion.IterationRecord) error {
	if len(history) == 0 {
		return fmt.Errorf("no iteration history to export")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	f := excelize.NewFile()

	convergence := "Convergence"
	f.SetSheetName("Sheet1", convergence)
	for col, header := range []string{"Iteration", "Beta", "PhiD", "PhiM", "IRLS"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(convergence, cell, header)
	}
	for i, rec := range history {
		row := i + 2
		values := []interface{}{rec.Iteration, rec.Beta, rec.PhiD, rec.PhiM, rec.IRLSActive}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(convergence, cell, v)
		}
	}

	models := "Models"
	f.NewSheet(models)
	f.SetCellValue(models, "A1", "TopDepth_m")
	depths := mesh.InterfaceDepths(thicknesses)
	for i := 0; i < len(thicknesses)+1; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		f.SetCellValue(models, cell, depths[i])
	}
	for j, rec := range history {
		col := j + 2
		cell, _ := excelize.CoordinatesToCellName(col, 1)
		f.SetCellValue(models, cell, fmt.Sprintf("iter_%d", rec.Iteration))
		for i, v := range rec.Model {
			cell, _ := excelize.CoordinatesToCellName(col, i+2)
			f.SetCellValue(models, cell, v)
		}
	}

	predicted := "Predicted"
	f.NewSheet(predicted)
	f.SetCellValue(predicted, "A1", "Datum")
	for i := range history[0].Predicted {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		f.SetCellValue(predicted, cell, i)
	}
	for j, rec := range history {
		col := j + 2
		cell, _ := excelize.CoordinatesToCellName(col, 1)
		f.SetCellValue(predicted, cell, fmt.Sprintf("iter_%d", rec.Iteration))
		for i, v := range rec.Predicted {
			cell, _ := excelize.CoordinatesToCellName(col, i+2)
			f.SetCellValue(predicted, cell, v)
		}
	}

	return f.SaveAs(path)
}
