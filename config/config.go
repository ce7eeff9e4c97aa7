// Package config loads the run configuration from defaults, an optional file,
// SHORTRATE_* environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/meenmo/shortrate/calibration"
	"github.com/meenmo/shortrate/marketdata"
	"github.com/meenmo/shortrate/simulation"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("config: invalid")

// EnvPrefix prefixes every environment override, e.g. SHORTRATE_SIMULATION_PATHS.
const EnvPrefix = "SHORTRATE"

// Config is the full run configuration.
type Config struct {
	Data        DataConfig        `mapstructure:"data" json:"data"`
	Calibration CalibrationConfig `mapstructure:"calibration" json:"calibration"`
	Simulation  SimulationConfig  `mapstructure:"simulation" json:"simulation"`
	Export      ExportConfig      `mapstructure:"export" json:"export"`
	Log         LogConfig         `mapstructure:"log" json:"log"`
}

// DataConfig selects the rate history.
type DataConfig struct {
	// CSVPath is the local fallback table with date and rate columns.
	CSVPath string `mapstructure:"csv_path" json:"csv_path"`
	// ECBEnabled tries the ECB Statistical Data Warehouse before the CSV file.
	ECBEnabled bool `mapstructure:"ecb_enabled" json:"ecb_enabled"`
	// ECBBaseURL is the SDMX REST root of the statistical data warehouse.
	ECBBaseURL string `mapstructure:"ecb_base_url" json:"ecb_base_url"`
	// ECBSeries overrides the candidate list with one "DATASET/KEY" series.
	ECBSeries string `mapstructure:"ecb_series" json:"ecb_series"`
	// LastN is the number of most recent observations requested.
	LastN int `mapstructure:"last_n" json:"last_n"`
	// Timeout bounds each ECB request.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// InferDt replaces calibration.dt with the median spacing of the loaded series.
	InferDt bool `mapstructure:"infer_dt" json:"infer_dt"`
}

// CalibrationConfig selects the estimator.
type CalibrationConfig struct {
	Method      string  `mapstructure:"method" json:"method"`
	Dt          float64 `mapstructure:"dt" json:"dt"`
	ShowQuality bool    `mapstructure:"show_quality" json:"show_quality"`
}

// SimulationConfig sizes the Monte Carlo run.
type SimulationConfig struct {
	Scheme  string `mapstructure:"scheme" json:"scheme"`
	Horizon int    `mapstructure:"horizon" json:"horizon"`
	Paths   int    `mapstructure:"paths" json:"paths"`
	Seed    uint64 `mapstructure:"seed" json:"seed"`
	// Seeded makes Seed effective; otherwise every run draws a fresh seed.
	Seeded bool `mapstructure:"seeded" json:"seeded"`
}

// ExportConfig names output files. Empty paths disable the export.
type ExportConfig struct {
	StatsJSON  string `mapstructure:"stats_json" json:"stats_json"`
	PathsCSV   string `mapstructure:"paths_csv" json:"paths_csv"`
	Workbook   string `mapstructure:"workbook" json:"workbook"`
	AllPaths   bool   `mapstructure:"all_paths" json:"all_paths"`
	SampleSize int    `mapstructure:"sample_size" json:"sample_size"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
	// Quiet raises the level to error.
	Quiet bool `mapstructure:"quiet" json:"quiet"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Data: DataConfig{
			CSVPath:    "data/sample_euribor3m.csv",
			ECBEnabled: true,
			ECBBaseURL: marketdata.ECBBaseURL,
			LastN:      600,
			Timeout:    15 * time.Second,
		},
		Calibration: CalibrationConfig{
			Method: string(calibration.MethodMLE),
			Dt:     1.0 / 252,
		},
		Simulation: SimulationConfig{
			Scheme:  string(simulation.SchemeExact),
			Horizon: 252,
			Paths:   10000,
		},
		Export: ExportConfig{
			SampleSize: 100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("data.csv_path", d.Data.CSVPath)
	v.SetDefault("data.ecb_enabled", d.Data.ECBEnabled)
	v.SetDefault("data.ecb_base_url", d.Data.ECBBaseURL)
	v.SetDefault("data.ecb_series", d.Data.ECBSeries)
	v.SetDefault("data.last_n", d.Data.LastN)
	v.SetDefault("data.timeout", d.Data.Timeout)
	v.SetDefault("data.infer_dt", d.Data.InferDt)

	v.SetDefault("calibration.method", d.Calibration.Method)
	v.SetDefault("calibration.dt", d.Calibration.Dt)
	v.SetDefault("calibration.show_quality", d.Calibration.ShowQuality)

	v.SetDefault("simulation.scheme", d.Simulation.Scheme)
	v.SetDefault("simulation.horizon", d.Simulation.Horizon)
	v.SetDefault("simulation.paths", d.Simulation.Paths)
	v.SetDefault("simulation.seed", d.Simulation.Seed)
	v.SetDefault("simulation.seeded", d.Simulation.Seeded)

	v.SetDefault("export.stats_json", d.Export.StatsJSON)
	v.SetDefault("export.paths_csv", d.Export.PathsCSV)
	v.SetDefault("export.workbook", d.Export.Workbook)
	v.SetDefault("export.all_paths", d.Export.AllPaths)
	v.SetDefault("export.sample_size", d.Export.SampleSize)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.quiet", d.Log.Quiet)
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"csv":              "data.csv_path",
	"infer-dt":         "data.infer_dt",
	"calibration":      "calibration.method",
	"dt":               "calibration.dt",
	"show-quality":     "calibration.show_quality",
	"method":           "simulation.scheme",
	"horizon":          "simulation.horizon",
	"paths":            "simulation.paths",
	"seed":             "simulation.seed",
	"export-stats":     "export.stats_json",
	"export-csv":       "export.paths_csv",
	"export-all-paths": "export.all_paths",
	"workbook":         "export.workbook",
	"log-level":        "log.level",
	"quiet":            "log.quiet",
}

// NewFlagSet declares every command-line flag, with Default values shown in usage.
func NewFlagSet(name string) *pflag.FlagSet {
	d := Default()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.String("config", "", "configuration file (yaml, toml or json)")
	fs.String("csv", d.Data.CSVPath, "fallback CSV with date and rate columns")
	fs.Bool("no-ecb", false, "skip the ECB download and read the CSV directly")
	fs.Bool("infer-dt", d.Data.InferDt, "infer dt from the median spacing of the data")

	fs.String("calibration", d.Calibration.Method, "calibration method: ols or mle")
	fs.Float64("dt", d.Calibration.Dt, "time step in years")
	fs.Bool("show-quality", d.Calibration.ShowQuality, "report standardized residual diagnostics")

	fs.String("method", d.Simulation.Scheme, "simulation scheme: exact or euler")
	fs.Int("horizon", d.Simulation.Horizon, "simulation horizon in steps")
	fs.Int("paths", d.Simulation.Paths, "number of Monte Carlo paths")
	fs.Uint64("seed", 0, "random seed for reproducible paths")

	fs.String("export-stats", "", "write the JSON report to this file")
	fs.String("export-csv", "", "write simulated paths to this CSV file")
	fs.Bool("export-all-paths", false, "export every path instead of a sample")
	fs.String("workbook", "", "write an XLSX workbook to this file")

	fs.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
	fs.BoolP("quiet", "q", false, "log errors only")
	return fs
}

// Load builds a Config from defaults, the file at path (skipped when empty), environment
// variables and flags (nil for none), then validates it.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	if flags.Changed("seed") {
		v.Set("simulation.seeded", true)
	}
	if noECB, err := flags.GetBool("no-ecb"); err == nil && noECB {
		v.Set("data.ecb_enabled", false)
	}
	return nil
}

// Validate normalises method and scheme names and checks numeric ranges. Every problem is
// reported, each wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if m, err := calibration.ParseMethod(c.Calibration.Method); err != nil {
		invalid("calibration.method: %v", err)
	} else {
		c.Calibration.Method = string(m)
	}
	if s, err := simulation.ParseScheme(c.Simulation.Scheme); err != nil {
		invalid("simulation.scheme: %v", err)
	} else {
		c.Simulation.Scheme = string(s)
	}

	if dt := c.Calibration.Dt; math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		invalid("calibration.dt must be positive, got %v", dt)
	}
	if c.Simulation.Horizon < 0 {
		invalid("simulation.horizon must be non-negative, got %d", c.Simulation.Horizon)
	}
	if c.Simulation.Paths < 1 {
		invalid("simulation.paths must be at least 1, got %d", c.Simulation.Paths)
	}
	if c.Data.LastN < 1 {
		invalid("data.last_n must be at least 1, got %d", c.Data.LastN)
	}
	if c.Data.Timeout <= 0 {
		invalid("data.timeout must be positive, got %v", c.Data.Timeout)
	}
	if c.Data.ECBSeries != "" {
		if _, err := c.ECBSeries(); err != nil {
			invalid("data.ecb_series: %v", err)
		}
	}
	if c.Data.ECBEnabled && c.Data.ECBBaseURL == "" {
		invalid("data.ecb_base_url is required when the ECB source is enabled")
	}
	if !c.Data.ECBEnabled && c.Data.CSVPath == "" {
		invalid("data.csv_path is required when the ECB source is disabled")
	}
	if c.Export.SampleSize < 1 {
		invalid("export.sample_size must be at least 1, got %d", c.Export.SampleSize)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		invalid("log.level: %v", err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		invalid("log.format must be json or console, got %q", c.Log.Format)
	}

	return errors.Join(errs...)
}

// Method is the validated calibration method.
func (c *Config) Method() calibration.Method {
	return calibration.Method(c.Calibration.Method)
}

// SimulationConfig converts the simulation section for simulation.Simulate.
func (c *Config) SimulationConfig() simulation.Config {
	sc := simulation.Config{
		Steps:  c.Simulation.Horizon,
		Paths:  c.Simulation.Paths,
		Dt:     c.Calibration.Dt,
		Scheme: simulation.Scheme(c.Simulation.Scheme),
	}
	if c.Simulation.Seeded {
		sc.Seed = simulation.Seed(c.Simulation.Seed)
	}
	return sc
}

// ECBSeries parses the "DATASET/KEY" override. The label is the raw setting.
func (c *Config) ECBSeries() (marketdata.ECBSeries, error) {
	dataset, key, ok := strings.Cut(strings.TrimSpace(c.Data.ECBSeries), "/")
	if !ok || dataset == "" || key == "" {
		return marketdata.ECBSeries{}, fmt.Errorf("want DATASET/KEY, got %q", c.Data.ECBSeries)
	}
	return marketdata.ECBSeries{Label: c.Data.ECBSeries, Dataset: dataset, Key: key}, nil
}

// LogLevel is the effective level after Quiet.
func (c *Config) LogLevel() string {
	if c.Log.Quiet {
		return "error"
	}
	return c.Log.Level
}
