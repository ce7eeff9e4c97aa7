// Package report serializes a calibration and simulation run: a JSON summary, a CSV of
// simulated paths and an XLSX workbook.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/meenmo/shortrate/calibration"
	"github.com/meenmo/shortrate/marketdata"
	"github.com/meenmo/shortrate/stats"
	"github.com/meenmo/shortrate/vasicek"
)

// Report is the JSON document written for every run.
type Report struct {
	RunID       string                     `json:"run_id"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Parameters  vasicek.Params             `json:"parameters"`
	Calibration CalibrationSummary         `json:"calibration"`
	Quality     *calibration.QualityReport `json:"quality,omitempty"`
	Statistics  stats.Bundle               `json:"statistics"`
	ZeroCurve   []vasicek.CurvePoint       `json:"zero_curve"`
	Metadata    Metadata                   `json:"metadata"`
}

// CalibrationSummary records how Parameters were estimated.
type CalibrationSummary struct {
	Method           calibration.Method `json:"method"`
	Fallback         bool               `json:"fallback"`
	SlopeClamped     bool               `json:"slope_clamped"`
	Iterations       int                `json:"iterations"`
	NegLogLikelihood float64            `json:"neg_log_likelihood"`
	Observations     int                `json:"observations"`
	Dt               float64            `json:"dt"`
	HalfLifeYears    float64            `json:"half_life_years"`
}

// Metadata carries provenance and the effective configuration.
type Metadata struct {
	DataSource           marketdata.Metadata `json:"data_source"`
	Config               any                 `json:"config,omitempty"`
	ExecutionTimeSeconds float64             `json:"execution_time_seconds"`
}

// Input collects the results of one run.
type Input struct {
	Calibration  calibration.Result
	Observations int
	Dt           float64
	Quality      *calibration.QualityReport
	Statistics   stats.Bundle
	DataSource   marketdata.Metadata
	Config       any
	// Started is when the run began; zero leaves ExecutionTimeSeconds at 0.
	Started time.Time
}

// New assembles a Report with a fresh run id and the model zero curve at
// vasicek.StandardTenors.
func New(in Input) *Report {
	now := time.Now().UTC()
	p := in.Calibration.Params

	var elapsed float64
	if !in.Started.IsZero() {
		elapsed = now.Sub(in.Started).Seconds()
	}

	return &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: now,
		Parameters:  p,
		Calibration: CalibrationSummary{
			Method:           in.Calibration.Method,
			Fallback:         in.Calibration.Fallback,
			SlopeClamped:     in.Calibration.SlopeClamped,
			Iterations:       in.Calibration.Iterations,
			NegLogLikelihood: in.Calibration.NegLogLikelihood,
			Observations:     in.Observations,
			Dt:               in.Dt,
			HalfLifeYears:    p.HalfLife(),
		},
		Quality:    in.Quality,
		Statistics: in.Statistics,
		ZeroCurve:  p.ZeroCurve(vasicek.StandardTenors),
		Metadata: Metadata{
			DataSource:           in.DataSource,
			Config:               in.Config,
			ExecutionTimeSeconds: elapsed,
		},
	}
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("WriteJSON: %w", err)
	}
	return nil
}

// SaveJSON writes r to path.
func SaveJSON(path string, r *Report) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(w, r) })
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
