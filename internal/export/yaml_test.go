package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/civiclab/splitrate/internal/model"
	"github.com/civiclab/splitrate/internal/tax"
)

func TestWriteScenarioYAML(t *testing.T) {
	t.Parallel()

	scenario := model.Scenario{
		BuildingMillage: 9.5,
		LandMillage:     19.0,
		Ratio:           2.0,
		CurrentRevenue:  1_000_000,
		NewRevenue:      1_000_000.4,
	}

	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, WriteScenarioYAML(path, scenario, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc scenarioDoc
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, scenario, doc.Scenario)
	assert.Nil(t, doc.Warning)
	assert.NotContains(t, string(data), "reconciliation_warning")
}

func TestWriteScenarioYAMLWithWarning(t *testing.T) {
	t.Parallel()

	warn := &tax.ReconciliationMismatch{
		Target:   1_000_000,
		Actual:   1_000_050,
		Delta:    50,
		Relative: 5e-5,
	}

	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, WriteScenarioYAML(path, model.Scenario{Ratio: 2}, warn))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc scenarioDoc
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.NotNil(t, doc.Warning)
	assert.Equal(t, 50.0, doc.Warning.Delta)
}
