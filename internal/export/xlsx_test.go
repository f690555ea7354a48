package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/civiclab/splitrate/internal/impact"
	"github.com/civiclab/splitrate/internal/model"
)

func TestWriteSummaryXLSX(t *testing.T) {
	t.Parallel()

	pct := 8.25
	scenario := model.Scenario{
		BuildingMillage: 9.5,
		LandMillage:     19.0,
		Ratio:           2.0,
		CurrentRevenue:  1_000_000,
		NewRevenue:      1_000_000.4,
	}
	sheets := []SheetData{
		{
			Name: "By Category",
			Stats: []impact.GroupStats{
				{Group: "Residential", Count: 120, MeanChange: -150, MedianChange: -90, MeanPercentChange: &pct, ShareIncreased: 0.25},
				{Group: "Vacant", Count: 8, MeanChange: 400, MedianChange: 380, ShareIncreased: 1},
			},
		},
		{Name: "By District"},
	}

	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, WriteSummaryXLSX(path, scenario, sheets))

	file, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 3)
	assert.Equal(t, "Scenario", file.Sheets[0].Name)
	assert.Equal(t, "By Category", file.Sheets[1].Name)
	assert.Equal(t, "By District", file.Sheets[2].Name)

	scen := file.Sheets[0]
	assert.Equal(t, "Building millage", scen.Rows[0].Cells[0].Value)
	v, err := scen.Rows[0].Cells[1].Float()
	require.NoError(t, err)
	assert.Equal(t, 9.5, v)

	cat := file.Sheets[1]
	require.Len(t, cat.Rows, 3)
	assert.Equal(t, "Group", cat.Rows[0].Cells[0].Value)
	assert.Equal(t, "Residential", cat.Rows[1].Cells[0].Value)
	pctCell, err := cat.Rows[1].Cells[4].Float()
	require.NoError(t, err)
	assert.Equal(t, 8.25, pctCell)
	// Undefined percent change stays blank rather than reading as zero.
	assert.Empty(t, cat.Rows[2].Cells[4].Value)
}
