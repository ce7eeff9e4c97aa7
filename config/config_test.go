package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/shortrate/calibration"
	"github.com/meenmo/shortrate/config"
	"github.com/meenmo/shortrate/simulation"
)

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	want := config.Default()
	assert.Equal(t, &want, cfg)
	assert.Equal(t, calibration.MethodMLE, cfg.Method())

	sc := cfg.SimulationConfig()
	assert.Equal(t, 252, sc.Steps)
	assert.Equal(t, 10000, sc.Paths)
	assert.InDelta(t, 1.0/252, sc.Dt, 1e-15)
	assert.Equal(t, simulation.SchemeExact, sc.Scheme)
	assert.Nil(t, sc.Seed)
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data:
  ecb_enabled: false
  csv_path: rates.csv
  timeout: 5s
calibration:
  method: OLS
simulation:
  scheme: euler
  paths: 500
  seed: 42
  seeded: true
export:
  paths_csv: out.csv
log:
  format: json
`), 0o600))

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.False(t, cfg.Data.ECBEnabled)
	assert.Equal(t, "rates.csv", cfg.Data.CSVPath)
	assert.Equal(t, 5*time.Second, cfg.Data.Timeout)
	assert.Equal(t, calibration.MethodOLS, cfg.Method())
	assert.Equal(t, "out.csv", cfg.Export.PathsCSV)
	assert.Equal(t, "json", cfg.Log.Format)

	sc := cfg.SimulationConfig()
	assert.Equal(t, simulation.SchemeEuler, sc.Scheme)
	assert.Equal(t, 500, sc.Paths)
	assert.Equal(t, 252, sc.Steps)
	require.NotNil(t, sc.Seed)
	assert.Equal(t, uint64(42), *sc.Seed)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_Flags(t *testing.T) {
	t.Parallel()

	fs := config.NewFlagSet("test")
	require.NoError(t, fs.Parse([]string{
		"--calibration", "ols",
		"--method", "euler",
		"--horizon", "10",
		"--paths", "7",
		"--seed", "99",
		"--no-ecb",
		"--csv", "local.csv",
		"--export-all-paths",
		"-q",
	}))

	cfg, err := config.Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, calibration.MethodOLS, cfg.Method())
	assert.Equal(t, "euler", cfg.Simulation.Scheme)
	assert.Equal(t, 10, cfg.Simulation.Horizon)
	assert.Equal(t, 7, cfg.Simulation.Paths)
	assert.True(t, cfg.Simulation.Seeded)
	assert.Equal(t, uint64(99), cfg.Simulation.Seed)
	assert.False(t, cfg.Data.ECBEnabled)
	assert.Equal(t, "local.csv", cfg.Data.CSVPath)
	assert.True(t, cfg.Export.AllPaths)
	assert.Equal(t, "error", cfg.LogLevel())
}

func TestLoad_FlagsDoNotMaskFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.toml")
	require.NoError(t, os.WriteFile(path, []byte("[simulation]\npaths = 321\n"), 0o600))

	fs := config.NewFlagSet("test")
	require.NoError(t, fs.Parse([]string{"--horizon", "5"}))

	cfg, err := config.Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, 321, cfg.Simulation.Paths)
	assert.Equal(t, 5, cfg.Simulation.Horizon)
	assert.False(t, cfg.Simulation.Seeded)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SHORTRATE_SIMULATION_PATHS", "2500")
	t.Setenv("SHORTRATE_CALIBRATION_METHOD", "ols")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 2500, cfg.Simulation.Paths)
	assert.Equal(t, calibration.MethodOLS, cfg.Method())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"method", func(c *config.Config) { c.Calibration.Method = "gmm" }},
		{"scheme", func(c *config.Config) { c.Simulation.Scheme = "milstein" }},
		{"dt", func(c *config.Config) { c.Calibration.Dt = 0 }},
		{"horizon", func(c *config.Config) { c.Simulation.Horizon = -1 }},
		{"paths", func(c *config.Config) { c.Simulation.Paths = 0 }},
		{"last_n", func(c *config.Config) { c.Data.LastN = 0 }},
		{"timeout", func(c *config.Config) { c.Data.Timeout = 0 }},
		{"ecb_series", func(c *config.Config) { c.Data.ECBSeries = "FM" }},
		{"ecb_series key", func(c *config.Config) { c.Data.ECBSeries = "FM/" }},
		{"ecb_base_url", func(c *config.Config) { c.Data.ECBBaseURL = "" }},
		{"csv required", func(c *config.Config) { c.Data.ECBEnabled = false; c.Data.CSVPath = "" }},
		{"sample", func(c *config.Config) { c.Export.SampleSize = 0 }},
		{"level", func(c *config.Config) { c.Log.Level = "loud" }},
		{"format", func(c *config.Config) { c.Log.Format = "xml" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalid)
		})
	}

	cfg := config.Default()
	cfg.Calibration.Method = "gmm"
	cfg.Simulation.Paths = 0
	err := cfg.Validate()
	assert.ErrorContains(t, err, "calibration.method")
	assert.ErrorContains(t, err, "simulation.paths")
}

func TestECBSeries(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Data.ECBSeries = "FM/M.U2.EUR.RT.MM.EURIBOR1MD_.HSTA"
	require.NoError(t, cfg.Validate())

	s, err := cfg.ECBSeries()
	require.NoError(t, err)
	assert.Equal(t, "FM", s.Dataset)
	assert.Equal(t, "M.U2.EUR.RT.MM.EURIBOR1MD_.HSTA", s.Key)
	assert.Equal(t, cfg.Data.ECBSeries, s.Label)
}
