// Package stats characterises simulated rate distributions and checks them against
// the closed-form Vasicek moments.
package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/meenmo/shortrate/simulation"
	"github.com/meenmo/shortrate/vasicek"
)

// ErrEmptyMatrix is returned for a nil matrix or one without paths.
var ErrEmptyMatrix = errors.New("stats: empty trajectory matrix")

// Bundle groups every statistic of one simulation run.
type Bundle struct {
	Terminal   Terminal   `json:"terminal"`
	Paths      PathStats  `json:"paths"`
	Validation Validation `json:"validation"`
	Info       Info       `json:"simulation_info"`
}

// Terminal describes the distribution of the final row.
type Terminal struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"` // sample, n−1
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	P05    float64 `json:"p05"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	P95    float64 `json:"p95"`
}

// PathStats aggregates per-path measures across paths.
type PathStats struct {
	// MeanPathVolatility is the mean over paths of each path's sample std of levels.
	MeanPathVolatility float64 `json:"mean_path_volatility"`
	// MaxDrawdown is the mean over paths of each path's maximum relative drawdown.
	MaxDrawdown float64 `json:"max_drawdown"`
	// TimeAboveInitial is the fraction of paths ending above their initial value.
	TimeAboveInitial float64 `json:"time_above_initial"`
	// NegativeRatesProb is the fraction of paths negative at any time.
	NegativeRatesProb float64 `json:"negative_rates_prob"`
}

// Validation compares simulated terminal moments with theory at T = steps·dt.
type Validation struct {
	TheoreticalTerminalMean float64 `json:"theoretical_terminal_mean"`
	TheoreticalTerminalStd  float64 `json:"theoretical_terminal_std"`
	MeanError               float64 `json:"mean_error"`
	StdError                float64 `json:"std_error"`
}

// Info echoes the run dimensions.
type Info struct {
	NPaths         int     `json:"n_paths"`
	NSteps         int     `json:"n_steps"`
	TotalTimeYears float64 `json:"total_time_years"`
	Dt             float64 `json:"dt"`
}

// Compute builds the Bundle for m, generated under p with step dt.
func Compute(m *simulation.Matrix, p vasicek.Params, dt float64) (Bundle, error) {
	if m == nil || m.Paths() == 0 {
		return Bundle{}, ErrEmptyMatrix
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return Bundle{}, fmt.Errorf("Compute: dt must be positive and finite, got %v", dt)
	}
	if err := p.Validate(); err != nil {
		return Bundle{}, fmt.Errorf("Compute: %w", err)
	}

	term := terminalStats(m.Terminal())
	paths := pathStats(m)

	T := float64(m.Steps()) * dt
	thMean := p.TerminalMean(T)
	thStd := p.TerminalStd(T)

	return Bundle{
		Terminal: term,
		Paths:    paths,
		Validation: Validation{
			TheoreticalTerminalMean: thMean,
			TheoreticalTerminalStd:  thStd,
			MeanError:               math.Abs(term.Mean - thMean),
			StdError:                math.Abs(term.Std - thStd),
		},
		Info: Info{
			NPaths:         m.Paths(),
			NSteps:         m.Steps(),
			TotalTimeYears: T,
			Dt:             dt,
		},
	}, nil
}

// Run simulates under p and cfg and computes the Bundle of the result.
func Run(p vasicek.Params, cfg simulation.Config) (*simulation.Matrix, Bundle, error) {
	m, err := simulation.Simulate(p, cfg)
	if err != nil {
		return nil, Bundle{}, err
	}
	b, err := Compute(m, p, cfg.Dt)
	if err != nil {
		return nil, Bundle{}, err
	}
	return m, b, nil
}

func terminalStats(x []float64) Terminal {
	sorted := slices.Clone(x)
	slices.Sort(sorted)

	return Terminal{
		Mean:   stat.Mean(x, nil),
		Std:    sampleStd(x),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: Percentile(sorted, 50),
		P05:    Percentile(sorted, 5),
		P25:    Percentile(sorted, 25),
		P75:    Percentile(sorted, 75),
		P95:    Percentile(sorted, 95),
	}
}

func pathStats(m *simulation.Matrix) PathStats {
	n := m.Paths()
	initial := m.Row(0)
	terminal := m.Terminal()

	var volSum, ddSum float64
	var above, negative int
	for j := 0; j < n; j++ {
		path := m.Path(j)
		volSum += sampleStd(path)
		ddSum += MaxDrawdown(path)
		if terminal[j] > initial[j] {
			above++
		}
		if floats.Min(path) < 0 {
			negative++
		}
	}

	fn := float64(n)
	return PathStats{
		MeanPathVolatility: volSum / fn,
		MaxDrawdown:        ddSum / fn,
		TimeAboveInitial:   float64(above) / fn,
		NegativeRatesProb:  float64(negative) / fn,
	}
}

// sampleStd is the n−1 standard deviation; a single observation has zero spread.
func sampleStd(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}
