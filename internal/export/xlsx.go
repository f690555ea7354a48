package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/civiclab/splitrate/internal/impact"
	"github.com/civiclab/splitrate/internal/model"
)

// SheetData is one impact grouping to render as a worksheet.
type SheetData struct {
	Name  string
	Stats []impact.GroupStats
}

// WriteSummaryXLSX writes the scenario parameters and impact groupings to a
// workbook, one sheet per grouping.
func WriteSummaryXLSX(path string, scenario model.Scenario, sheets []SheetData) error {
	file := xlsx.NewFile()

	if err := writeScenarioSheet(file, scenario); err != nil {
		return err
	}
	for _, sd := range sheets {
		if err := writeGroupSheet(file, sd); err != nil {
			return err
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrap(err, "export: save xlsx")
	}
	return nil
}

func writeScenarioSheet(file *xlsx.File, scenario model.Scenario) error {
	sheet, err := file.AddSheet("Scenario")
	if err != nil {
		return eris.Wrap(err, "export: add scenario sheet")
	}

	addPair := func(label string, value float64) {
		row := sheet.AddRow()
		row.AddCell().Value = label
		row.AddCell().SetFloat(value)
	}
	addPair("Building millage", scenario.BuildingMillage)
	addPair("Land millage", scenario.LandMillage)
	addPair("Land to building ratio", scenario.Ratio)
	addPair("Current revenue", scenario.CurrentRevenue)
	addPair("New revenue", scenario.NewRevenue)
	addPair("Verification delta", scenario.VerificationDelta)
	return nil
}

func writeGroupSheet(file *xlsx.File, sd SheetData) error {
	sheet, err := file.AddSheet(sd.Name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", sd.Name)
	}

	header := sheet.AddRow()
	for _, h := range []string{"Group", "Parcels", "Mean change", "Median change", "Mean pct change", "Share increased"} {
		header.AddCell().Value = h
	}

	for _, gs := range sd.Stats {
		row := sheet.AddRow()
		row.AddCell().Value = gs.Group
		row.AddCell().SetInt(gs.Count)
		row.AddCell().SetFloat(gs.MeanChange)
		row.AddCell().SetFloat(gs.MedianChange)
		if gs.MeanPercentChange != nil {
			row.AddCell().SetFloat(*gs.MeanPercentChange)
		} else {
			row.AddCell()
		}
		row.AddCell().SetFloat(gs.ShareIncreased)
	}
	return nil
}
