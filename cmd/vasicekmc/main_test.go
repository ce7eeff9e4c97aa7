package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/shortrate/calendar"
	"github.com/meenmo/shortrate/config"
	"github.com/meenmo/shortrate/simulation"
	"github.com/meenmo/shortrate/vasicek"
)

// writeHistory stores a simulated daily fixing history as a DATE,RATE table.
func writeHistory(t *testing.T, n int) string {
	t.Helper()

	p := vasicek.Params{Kappa: 3, Theta: 0.025, Sigma: 0.008, R0: 0.02}
	m, err := simulation.Simulate(p, simulation.Config{Steps: n - 1, Paths: 1, Dt: 1.0 / 252, Seed: simulation.Seed(11)})
	require.NoError(t, err)

	dates := calendar.BusinessDays(calendar.TARGET, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), n-1)
	var b strings.Builder
	b.WriteString("DATE,RATE\n")
	for i, r := range m.Path(0) {
		fmt.Fprintf(&b, "%s,%.6f\n", dates[i].Format(time.DateOnly), r)
	}

	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func decode(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	return doc
}

func TestRun_LocalCSV(t *testing.T) {
	t.Parallel()

	history := writeHistory(t, 300)
	dir := t.TempDir()
	pathsCSV := filepath.Join(dir, "paths.csv")
	workbook := filepath.Join(dir, "run.xlsx")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--no-ecb",
		"--csv", history,
		"--calibration", "ols",
		"--horizon", "20",
		"--paths", "50",
		"--seed", "7",
		"--show-quality",
		"--export-csv", pathsCSV,
		"--workbook", workbook,
		"-q",
	}, &stdout, &stderr)
	require.NoError(t, err)

	doc := decode(t, stdout.Bytes())
	assert.Equal(t, "ols", doc["calibration"].(map[string]any)["method"])
	assert.Contains(t, doc, "quality")

	info := doc["statistics"].(map[string]any)["simulation_info"].(map[string]any)
	assert.Equal(t, 50.0, info["n_paths"])
	assert.Equal(t, 20.0, info["n_steps"])

	src := doc["metadata"].(map[string]any)["data_source"].(map[string]any)
	assert.Equal(t, "csv", src["source"])
	assert.Equal(t, history, src["path"])

	assert.FileExists(t, pathsCSV)
	assert.FileExists(t, workbook)

	// A fixed seed reproduces the run.
	var again bytes.Buffer
	require.NoError(t, run(context.Background(), []string{
		"--no-ecb", "--csv", history, "--calibration", "ols",
		"--horizon", "20", "--paths", "50", "--seed", "7", "-q",
	}, &again, &stderr))
	assert.Equal(t,
		doc["statistics"].(map[string]any)["terminal"],
		decode(t, again.Bytes())["statistics"].(map[string]any)["terminal"])
}

func TestRun_ECBFailureFallsBackToCSV(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	history := writeHistory(t, 250)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
data:
  csv_path: %s
  ecb_base_url: %s
  timeout: 2s
simulation:
  horizon: 10
  paths: 40
  seed: 3
  seeded: true
log:
  quiet: true
`, history, srv.URL)), 0o600))

	statsJSON := filepath.Join(dir, "stats.json")
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--config", cfgPath, "--export-stats", statsJSON}, &stdout, &stderr))
	assert.Empty(t, stdout.String())

	b, err := os.ReadFile(statsJSON)
	require.NoError(t, err)
	doc := decode(t, b)

	src := doc["metadata"].(map[string]any)["data_source"].(map[string]any)
	assert.Equal(t, "fallback_csv", src["source"])
	assert.Contains(t, src["error_api"], "HTTP 503")

	method := doc["calibration"].(map[string]any)["method"]
	assert.Contains(t, []any{"mle", "ols"}, method)
}

func TestRun_InferDt(t *testing.T) {
	t.Parallel()

	history := writeHistory(t, 120)
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{
		"--no-ecb", "--csv", history, "--infer-dt", "--calibration", "ols",
		"--horizon", "5", "--paths", "10", "-q",
	}, &stdout, &stderr))

	dt := decode(t, stdout.Bytes())["calibration"].(map[string]any)["dt"].(float64)
	// Business-day spacing is mostly one calendar day.
	assert.InDelta(t, 1.0/365, dt, 1e-12)
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	history := writeHistory(t, 30)
	cases := []struct {
		name string
		args []string
		is   error
	}{
		{"invalid method", []string{"--no-ecb", "--csv", history, "--calibration", "gmm"}, config.ErrInvalid},
		{"invalid paths", []string{"--no-ecb", "--csv", history, "--paths", "0"}, config.ErrInvalid},
		{"missing csv", []string{"--no-ecb", "--csv", filepath.Join(t.TempDir(), "absent.csv"), "-q"}, os.ErrNotExist},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tc.args, &stdout, &stderr)
			assert.ErrorIs(t, err, tc.is)
			assert.Empty(t, stdout.String())
		})
	}

	t.Run("unknown flag", func(t *testing.T) {
		t.Parallel()
		var stdout, stderr bytes.Buffer
		assert.Error(t, run(context.Background(), []string{"--bogus"}, &stdout, &stderr))
	})
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--help"}, &stdout, &stderr))
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "--paths")
}
