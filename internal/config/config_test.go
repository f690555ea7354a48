package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "splitrate.db", cfg.Store.Path)
	assert.Equal(t, "1=1", cfg.Assessor.Where)
	assert.Equal(t, 2022, cfg.Census.Year)
	assert.Equal(t, 2022, cfg.Census.TigerYear)
	assert.InDelta(t, 12.0, cfg.Scenario.CurrentMillage, 0.001)
	assert.InDelta(t, 2.0, cfg.Scenario.Ratio, 0.001)
	assert.InDelta(t, 50000.0, cfg.Landuse.ParkingMinLandValue, 0.001)
	assert.InDelta(t, 0.1, cfg.Landuse.ParkingMaxImprRatio, 0.001)
	assert.Equal(t, 30, cfg.Landuse.PenaltyYears)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/splitrate
census:
  fips: "42101"
scenario:
  ratio: 3.5
log:
  level: debug
  format: console
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/splitrate", cfg.Store.DatabaseURL)
	assert.Equal(t, "42101", cfg.Census.FIPS)
	assert.InDelta(t, 3.5, cfg.Scenario.Ratio, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.InDelta(t, 12.0, cfg.Scenario.CurrentMillage, 0.001)
	assert.Equal(t, 2022, cfg.Census.Year)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
scenario:
  ratio: 3.5
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SPLITRATE_SCENARIO_RATIO", "5")
	t.Setenv("SPLITRATE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.InDelta(t, 5.0, cfg.Scenario.Ratio, 0.001)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("SPLITRATE_SERVER_PORT", "3000")
	t.Setenv("SPLITRATE_CENSUS_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Census.APIKey)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "splitrate.db"
	cfg.Scenario.CurrentMillage = 12
	cfg.Scenario.Ratio = 2
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateScenario(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("scenario"))

	cfg := validDefaults()
	cfg.Scenario.Ratio = 0
	err := cfg.Validate("scenario")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scenario.ratio must be > 0")
}

func TestValidateFetch(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("fetch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "assessor.layer_url is required")

	cfg.Assessor.LayerURL = "https://host/arcgis/rest/services/Parcels/FeatureServer/0"
	cfg.Assessor.Fields.ID = "PARCEL_ID"
	assert.NoError(t, cfg.Validate("fetch"))
}

func TestValidateDemographics(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("demographics")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "census.api_key is required")
	assert.Contains(t, err.Error(), "census.fips")

	cfg.Census.APIKey = "key"
	cfg.Census.FIPS = "42101"
	assert.NoError(t, cfg.Validate("demographics"))
}

func TestValidatePostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	err := cfg.Validate("scenario")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/splitrate"
	assert.NoError(t, cfg.Validate("scenario"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
