// Package config loads application configuration from config.yaml and
// SPLITRATE_-prefixed environment variables, and initializes the global
// logger. The analysis packages never read configuration themselves; values
// are passed in explicitly by the commands.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/civiclab/splitrate/internal/assessor"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Assessor AssessorConfig `yaml:"assessor" mapstructure:"assessor"`
	Census   CensusConfig   `yaml:"census" mapstructure:"census"`
	Scenario ScenarioConfig `yaml:"scenario" mapstructure:"scenario"`
	Landuse  LanduseConfig  `yaml:"landuse" mapstructure:"landuse"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the snapshot cache backend.
type StoreConfig struct {
	// Driver selects the cache store: sqlite or postgres.
	Driver string `yaml:"driver" mapstructure:"driver"`
	// Path is the sqlite database file.
	Path string `yaml:"path" mapstructure:"path"`
	// DatabaseURL is the postgres connection string.
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AssessorConfig configures the county parcel layer.
type AssessorConfig struct {
	// LayerURL is the ArcGIS layer endpoint, e.g.
	// https://host/arcgis/rest/services/Parcels/FeatureServer/0
	LayerURL string            `yaml:"layer_url" mapstructure:"layer_url"`
	Where    string            `yaml:"where" mapstructure:"where"`
	Fields   assessor.FieldMap `yaml:"fields" mapstructure:"fields"`
}

// CensusConfig configures ACS and boundary fetches.
type CensusConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	Year   int    `yaml:"year" mapstructure:"year"`
	// FIPS is the 5-digit state+county code, e.g. 42101.
	FIPS     string `yaml:"fips" mapstructure:"fips"`
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`
	// TigerYear selects the TIGER/Line vintage for the shapefile fallback.
	TigerYear int `yaml:"tiger_year" mapstructure:"tiger_year"`
}

// ScenarioConfig holds the scenario defaults.
type ScenarioConfig struct {
	// CurrentMillage is the flat rate used to recreate current taxes,
	// per $1000 of taxable value.
	CurrentMillage float64 `yaml:"current_millage" mapstructure:"current_millage"`
	// Ratio is the land:building millage ratio to solve for.
	Ratio float64 `yaml:"ratio" mapstructure:"ratio"`
}

// LanduseConfig holds the land-utilization analysis thresholds.
type LanduseConfig struct {
	ParkingMinLandValue float64 `yaml:"parking_min_land_value" mapstructure:"parking_min_land_value"`
	ParkingMaxImprRatio float64 `yaml:"parking_max_impr_ratio" mapstructure:"parking_max_impr_ratio"`
	PenaltyMillage      float64 `yaml:"penalty_millage" mapstructure:"penalty_millage"`
	PenaltyYears        int     `yaml:"penalty_years" mapstructure:"penalty_years"`
	PenaltyDiscountRate float64 `yaml:"penalty_discount_rate" mapstructure:"penalty_discount_rate"`
	ConstructionPerSqFt float64 `yaml:"construction_per_sqft" mapstructure:"construction_per_sqft"`
	UnitSizeSqFt        float64 `yaml:"unit_size_sqft" mapstructure:"unit_size_sqft"`
}

// ServerConfig configures the scenario API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the configuration can support the given mode. Modes
// map to commands: fetch, demographics, scenario, serve. Shared bounds are
// checked in every mode.
func (c *Config) Validate(mode string) error {
	var missing []string

	check := func(ok bool, msg string) {
		if !ok {
			missing = append(missing, msg)
		}
	}

	check(c.Store.Driver == "sqlite" || c.Store.Driver == "postgres",
		"store.driver must be sqlite or postgres")
	if c.Store.Driver == "postgres" {
		check(c.Store.DatabaseURL != "", "store.database_url is required for the postgres driver")
	} else {
		check(c.Store.Path != "", "store.path is required for the sqlite driver")
	}
	check(c.Scenario.CurrentMillage > 0, "scenario.current_millage must be > 0")
	check(c.Scenario.Ratio > 0, "scenario.ratio must be > 0")

	switch mode {
	case "fetch":
		check(c.Assessor.LayerURL != "", "assessor.layer_url is required")
		check(c.Assessor.Fields.ID != "", "assessor.fields.id is required")
	case "demographics":
		check(c.Census.APIKey != "", "census.api_key is required")
		check(len(c.Census.FIPS) == 5, "census.fips must be a 5-digit state+county code")
	case "scenario":
		// Covered by the shared checks.
	case "serve":
		check(c.Server.Port > 0, "server.port must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SPLITRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "splitrate.db")
	v.SetDefault("assessor.where", "1=1")
	v.SetDefault("census.year", 2022)
	v.SetDefault("census.tiger_year", 2022)
	v.SetDefault("census.cache_dir", ".splitrate-cache")
	v.SetDefault("scenario.current_millage", 12.0)
	v.SetDefault("scenario.ratio", 2.0)
	v.SetDefault("landuse.parking_min_land_value", 50000)
	v.SetDefault("landuse.parking_max_impr_ratio", 0.1)
	v.SetDefault("landuse.penalty_millage", 0.012)
	v.SetDefault("landuse.penalty_years", 30)
	v.SetDefault("landuse.penalty_discount_rate", 0.05)
	v.SetDefault("landuse.construction_per_sqft", 150)
	v.SetDefault("landuse.unit_size_sqft", 1200)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
