package export

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/civiclab/splitrate/internal/model"
	"github.com/civiclab/splitrate/internal/tax"
)

// scenarioDoc is the YAML layout for a scenario summary.
type scenarioDoc struct {
	Scenario model.Scenario             `yaml:"scenario"`
	Warning  *tax.ReconciliationMismatch `yaml:"reconciliation_warning,omitempty"`
}

// WriteScenarioYAML writes the solved scenario, with its reconciliation
// warning when verification flagged one, to path.
func WriteScenarioYAML(path string, scenario model.Scenario, warning *tax.ReconciliationMismatch) error {
	data, err := yaml.Marshal(scenarioDoc{Scenario: scenario, Warning: warning})
	if err != nil {
		return eris.Wrap(err, "export: marshal scenario yaml")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "export: write scenario yaml")
	}
	return nil
}
