package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MACROVECM_FRED_API_KEY.
const EnvPrefix = "MACROVECM"

// Config represents the complete pipeline configuration
type Config struct {
	Region     string           `mapstructure:"region" validate:"required"`
	Eurostat   EurostatConfig   `mapstructure:"eurostat"`
	FRED       FREDConfig       `mapstructure:"fred"`
	Panel      PanelConfig      `mapstructure:"panel"`
	Regression RegressionConfig `mapstructure:"regression"`
	Model      ModelConfig      `mapstructure:"model"`
	Output     OutputConfig     `mapstructure:"output"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// EurostatConfig holds the statistical-office API settings and the three datasets read from it
type EurostatConfig struct {
	APIBaseURL   string        `mapstructure:"api_base_url" validate:"required,url"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Inflation    DatasetConfig `mapstructure:"inflation"`
	Unemployment DatasetConfig `mapstructure:"unemployment"`
	GDP          DatasetConfig `mapstructure:"gdp"`
}

// DatasetConfig selects one series out of a dimensioned dataset
type DatasetConfig struct {
	Dataset     string            `mapstructure:"dataset" validate:"required"`
	Filters     map[string]string `mapstructure:"filters"`
	Aggregation string            `mapstructure:"aggregation" validate:"oneof=mean last"`
}

// FREDConfig holds the financial-data API settings and the policy-rate series
type FREDConfig struct {
	APIBaseURL  string        `mapstructure:"api_base_url" validate:"required,url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Source      string        `mapstructure:"source" validate:"required"`
	SeriesID    string        `mapstructure:"series_id" validate:"required"`
	Start       string        `mapstructure:"start" validate:"required"`
	Aggregation string        `mapstructure:"aggregation" validate:"oneof=mean last"`
}

// PanelConfig holds the merge settings
type PanelConfig struct {
	Floor string `mapstructure:"floor" validate:"required"`
	Fill  string `mapstructure:"fill" validate:"oneof=down up downup updown"`
}

// RegressionConfig names the OLS model
type RegressionConfig struct {
	Dependent  string   `mapstructure:"dependent" validate:"required"`
	Regressors []string `mapstructure:"regressors" validate:"min=1,dive,required"`
}

// ModelConfig holds the cointegration and impulse-response settings
type ModelConfig struct {
	Variables     []string  `mapstructure:"variables" validate:"min=2,dive,required"`
	MaxLag        int       `mapstructure:"max_lag" validate:"min=2,max=24"`
	Criterion     string    `mapstructure:"criterion" validate:"oneof=aic hq sc fpe"`
	Rank          int       `mapstructure:"rank" validate:"min=1"`
	ADFLags       int       `mapstructure:"adf_lags" validate:"min=0"`
	SerialLags    int       `mapstructure:"serial_lags" validate:"min=1"`
	ForecastSteps int       `mapstructure:"forecast_steps" validate:"min=0"`
	IRF           IRFConfig `mapstructure:"irf"`
}

// IRFConfig holds the bootstrap impulse-response settings
type IRFConfig struct {
	Impulse    string  `mapstructure:"impulse" validate:"required"`
	Response   string  `mapstructure:"response" validate:"required"`
	Horizon    int     `mapstructure:"horizon" validate:"min=1"`
	Confidence float64 `mapstructure:"confidence" validate:"gt=0,lt=1"`
	Runs       int     `mapstructure:"runs" validate:"min=1"`
	Seed       int64   `mapstructure:"seed"`
}

// OutputConfig holds the artifact paths, relative to Dir
type OutputConfig struct {
	Dir         string `mapstructure:"dir" validate:"required"`
	PanelCSV    string `mapstructure:"panel_csv" validate:"required"`
	PanelChart  string `mapstructure:"panel_chart" validate:"required"`
	IRFCSV      string `mapstructure:"irf_csv"`
	IRFChart    string `mapstructure:"irf_chart"`
	ForecastCSV string `mapstructure:"forecast_csv"`
	Workbook    string `mapstructure:"workbook"`
	Summary     string `mapstructure:"summary"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	Output string `mapstructure:"output" validate:"required"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	// MACROVECM_FRED_API_KEY overrides fred.api_key
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	defaultFilters(&cfg.Eurostat)

	return &cfg, nil
}

// defaultFilters sets the filters of datasets the file gives none for. Viper
// would merge map defaults key by key into the file's map, so a filter
// left out of the file would come back.
func defaultFilters(e *EurostatConfig) {
	if len(e.Inflation.Filters) == 0 {
		e.Inflation.Filters = map[string]string{"coicop": "CP00", "unit": "I15"}
	}
	if len(e.Unemployment.Filters) == 0 {
		e.Unemployment.Filters = map[string]string{
			"s_adj": "SA", "age": "TOTAL", "sex": "T", "unit": "PC_ACT",
		}
	}
	if len(e.GDP.Filters) == 0 {
		e.GDP.Filters = map[string]string{
			"unit": "CLV10_MEUR", "s_adj": "SCA", "na_item": "B1GQ",
		}
	}
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("region", "DE")

	// Eurostat defaults
	v.SetDefault("eurostat.api_base_url", "https://ec.europa.eu/eurostat/api/dissemination/statistics/1.0/data")
	v.SetDefault("eurostat.timeout", "60s")
	v.SetDefault("eurostat.inflation.dataset", "prc_hicp_midx")
	v.SetDefault("eurostat.inflation.aggregation", "mean")
	v.SetDefault("eurostat.unemployment.dataset", "une_rt_m")
	v.SetDefault("eurostat.unemployment.aggregation", "mean")
	v.SetDefault("eurostat.gdp.dataset", "namq_10_gdp")
	v.SetDefault("eurostat.gdp.aggregation", "mean")

	// FRED defaults
	v.SetDefault("fred.api_base_url", "https://api.stlouisfed.org/fred")
	v.SetDefault("fred.api_key", "")
	v.SetDefault("fred.timeout", "30s")
	v.SetDefault("fred.source", "FRED")
	v.SetDefault("fred.series_id", "ECBDFR")
	v.SetDefault("fred.start", "2000-01-01")
	v.SetDefault("fred.aggregation", "last")

	// Panel defaults
	v.SetDefault("panel.floor", "2000-01-01")
	v.SetDefault("panel.fill", "updown")

	// Regression defaults
	v.SetDefault("regression.dependent", "Inflation_YY")
	v.SetDefault("regression.regressors", []string{"D_Interest_Rate", "D_Unemployment_Rate", "GDP_Growth_YY"})

	// Model defaults
	v.SetDefault("model.variables", []string{"GDP_Growth_YY", "Inflation_YY", "Interest_Rate"})
	v.SetDefault("model.max_lag", 12)
	v.SetDefault("model.criterion", "hq")
	v.SetDefault("model.rank", 1)
	v.SetDefault("model.adf_lags", 0)
	v.SetDefault("model.serial_lags", 12)
	v.SetDefault("model.forecast_steps", 12)
	v.SetDefault("model.irf.impulse", "Interest_Rate")
	v.SetDefault("model.irf.response", "Inflation_YY")
	v.SetDefault("model.irf.horizon", 24)
	v.SetDefault("model.irf.confidence", 0.95)
	v.SetDefault("model.irf.runs", 500)
	v.SetDefault("model.irf.seed", 12345)

	// Output defaults
	v.SetDefault("output.dir", "./output")
	v.SetDefault("output.panel_csv", "macro_panel.csv")
	v.SetDefault("output.panel_chart", "macro_panel.png")
	v.SetDefault("output.irf_csv", "irf.csv")
	v.SetDefault("output.irf_chart", "irf.png")
	v.SetDefault("output.forecast_csv", "forecast.csv")
	v.SetDefault("output.workbook", "macro_results.xlsx")
	v.SetDefault("output.summary", "model_summary.yaml")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s fails %q (value %v)", fieldPath(fe.Namespace()), fe.Tag()+paramSuffix(fe.Param()), fe.Value())
		}
		return fmt.Errorf("validate config: %w", err)
	}

	if c.FRED.APIKey == "" {
		return fmt.Errorf("fred.api_key is required (set %s_FRED_API_KEY or put it in .env)", EnvPrefix)
	}
	if _, err := time.Parse(time.DateOnly, c.FRED.Start); err != nil {
		return fmt.Errorf("fred.start must be a YYYY-MM-DD date: %w", err)
	}
	if _, err := time.Parse(time.DateOnly, c.Panel.Floor); err != nil {
		return fmt.Errorf("panel.floor must be a YYYY-MM-DD date: %w", err)
	}

	seen := make(map[string]bool, len(c.Model.Variables))
	for _, name := range c.Model.Variables {
		if seen[name] {
			return fmt.Errorf("model.variables lists %s twice", name)
		}
		seen[name] = true
	}
	if c.Model.Rank >= len(c.Model.Variables) {
		return fmt.Errorf("model.rank must be below the number of model.variables (%d)", len(c.Model.Variables))
	}
	if !seen[c.Model.IRF.Impulse] {
		return fmt.Errorf("model.irf.impulse %s is not one of model.variables", c.Model.IRF.Impulse)
	}
	if !seen[c.Model.IRF.Response] {
		return fmt.Errorf("model.irf.response %s is not one of model.variables", c.Model.IRF.Response)
	}

	return nil
}

// FloorDate returns panel.floor as a date. Call after Validate.
func (c *Config) FloorDate() time.Time {
	t, _ := time.Parse(time.DateOnly, c.Panel.Floor)
	return t
}

// StartDate returns fred.start as a date. Call after Validate.
func (c *Config) StartDate() time.Time {
	t, _ := time.Parse(time.DateOnly, c.FRED.Start)
	return t
}

// fieldPath turns "Config.Model.IRF.Runs" into "model.irf.runs".
func fieldPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Config.")
	return strings.ToLower(ns)
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}
