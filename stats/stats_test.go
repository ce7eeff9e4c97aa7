package stats_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/meenmo/shortrate/simulation"
	"github.com/meenmo/shortrate/stats"
	"github.com/meenmo/shortrate/vasicek"
)

func TestCompute_HandBuiltMatrix(t *testing.T) {
	t.Parallel()

	rows := [][]float64{
		{0.02, 0.02, 0.02, 0.02},
		{0.03, 0.01, 0.02, -0.01},
		{0.015, 0.012, 0.04, 0.005},
	}
	m, err := simulation.FromRows(rows)
	require.NoError(t, err)

	p := vasicek.Params{Kappa: 0.5, Theta: 0.03, Sigma: 0.01, R0: 0.02}
	b, err := stats.Compute(m, p, 0.5)
	require.NoError(t, err)

	const tol = 1e-12
	term := b.Terminal
	assert.InDelta(t, 0.018, term.Mean, tol)
	assert.InDelta(t, math.Sqrt(698e-6/3), term.Std, tol)
	assert.InDelta(t, 0.005, term.Min, tol)
	assert.InDelta(t, 0.04, term.Max, tol)
	assert.InDelta(t, 0.0135, term.Median, tol)
	assert.InDelta(t, 0.00605, term.P05, tol)
	assert.InDelta(t, 0.01025, term.P25, tol)
	assert.InDelta(t, 0.02125, term.P75, tol)
	assert.InDelta(t, 0.03625, term.P95, tol)

	var vol float64
	for j := 0; j < m.Paths(); j++ {
		vol += stat.StdDev(m.Path(j), nil)
	}
	assert.InDelta(t, vol/4, b.Paths.MeanPathVolatility, tol)
	assert.InDelta(t, 0.625, b.Paths.MaxDrawdown, tol)
	assert.InDelta(t, 0.25, b.Paths.TimeAboveInitial, tol)
	assert.InDelta(t, 0.25, b.Paths.NegativeRatesProb, tol)

	assert.InDelta(t, p.TerminalMean(1.0), b.Validation.TheoreticalTerminalMean, tol)
	assert.InDelta(t, p.TerminalStd(1.0), b.Validation.TheoreticalTerminalStd, tol)
	assert.InDelta(t, math.Abs(term.Mean-p.TerminalMean(1.0)), b.Validation.MeanError, tol)
	assert.InDelta(t, math.Abs(term.Std-p.TerminalStd(1.0)), b.Validation.StdError, tol)

	assert.Equal(t, stats.Info{NPaths: 4, NSteps: 2, TotalTimeYears: 1.0, Dt: 0.5}, b.Info)
}

func TestCompute_NegativeOnlyAtMaturityVersusAlongPath(t *testing.T) {
	t.Parallel()

	// Path 0 dips below zero mid-way but recovers; it still counts.
	m, err := simulation.FromRows([][]float64{
		{0.01, 0.01},
		{-0.002, 0.012},
		{0.004, 0.011},
	})
	require.NoError(t, err)

	b, err := stats.Compute(m, vasicek.Params{Kappa: 1, Theta: 0.01, Sigma: 0.01, R0: 0.01}, 1.0/252)
	require.NoError(t, err)
	assert.Equal(t, 0.5, b.Paths.NegativeRatesProb)
	assert.Equal(t, 0.5, b.Paths.TimeAboveInitial)
}

func TestCompute_SinglePath(t *testing.T) {
	t.Parallel()

	m, err := simulation.FromRows([][]float64{{0.02}, {0.025}})
	require.NoError(t, err)

	b, err := stats.Compute(m, vasicek.Params{Kappa: 1, Theta: 0.02, Sigma: 0.01, R0: 0.02}, 1.0/252)
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.Terminal.Std)
	assert.Equal(t, 0.025, b.Terminal.Median)
}

func TestCompute_Errors(t *testing.T) {
	t.Parallel()

	p := vasicek.Params{Kappa: 1, Theta: 0.02, Sigma: 0.01, R0: 0.02}

	_, err := stats.Compute(nil, p, 1.0/252)
	assert.ErrorIs(t, err, stats.ErrEmptyMatrix)

	m, err := simulation.FromRows([][]float64{{0.02}})
	require.NoError(t, err)

	_, err = stats.Compute(m, p, 0)
	assert.Error(t, err)

	_, err = stats.Compute(m, vasicek.Params{Kappa: -1, Sigma: 0.01}, 1.0/252)
	assert.ErrorIs(t, err, vasicek.ErrInvalidParams)
}

func TestRun_ExactMatchesTheory(t *testing.T) {
	t.Parallel()

	p := vasicek.Params{Kappa: 0.8, Theta: 0.025, Sigma: 0.012, R0: 0.04}
	cfg := simulation.Config{Steps: 126, Paths: 50000, Dt: 1.0 / 252, Seed: simulation.Seed(17)}

	m, b, err := stats.Run(p, cfg)
	require.NoError(t, err)
	require.Equal(t, 127, len(m.Rows()))

	se := b.Validation.TheoreticalTerminalStd / math.Sqrt(float64(cfg.Paths))
	assert.Less(t, b.Validation.MeanError, 4*se)
	assert.Less(t, b.Validation.StdError, 4*se)
	assert.InDelta(t, 0.5, b.Info.TotalTimeYears, 1e-12)

	assert.Less(t, b.Terminal.P05, b.Terminal.P25)
	assert.Less(t, b.Terminal.P25, b.Terminal.Median)
	assert.Less(t, b.Terminal.Median, b.Terminal.P75)
	assert.Less(t, b.Terminal.P75, b.Terminal.P95)
}

func TestRun_LongHorizonRevertsToTheta(t *testing.T) {
	t.Parallel()

	p := vasicek.Params{Kappa: 2, Theta: 0.03, Sigma: 0.01, R0: 0.08}
	_, b, err := stats.Run(p, simulation.Config{Steps: 40, Paths: 20000, Dt: 0.25, Seed: simulation.Seed(3)})
	require.NoError(t, err)

	assert.InDelta(t, p.Theta, b.Validation.TheoreticalTerminalMean, 1e-8)
	assert.InDelta(t, math.Sqrt(p.StationaryVariance()), b.Validation.TheoreticalTerminalStd, 1e-10)
	assert.InDelta(t, p.Theta, b.Terminal.Mean, 4*b.Validation.TheoreticalTerminalStd/math.Sqrt(20000))
}

func TestRun_PropagatesInvalidScheme(t *testing.T) {
	t.Parallel()

	_, _, err := stats.Run(vasicek.Params{Kappa: 1, Theta: 0.02, Sigma: 0.01, R0: 0.02},
		simulation.Config{Steps: 1, Paths: 1, Dt: 1, Scheme: "milstein"})
	assert.ErrorIs(t, err, simulation.ErrInvalidScheme)
}

func TestBundle_JSONKeys(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(stats.Bundle{})
	require.NoError(t, err)

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &keys))
	for _, k := range []string{"terminal", "paths", "validation", "simulation_info"} {
		assert.Contains(t, keys, k)
	}
}
