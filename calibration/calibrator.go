// Package calibration estimates Vasicek parameters from an observed rate series.
//
// Two estimators share one contract: a rate column (decimal fractions, oldest first) and
// the year fraction dt between observations go in, a vasicek.Params comes out.
//
//   - OLS fits the AR(1) regression r[t+1] = a + b·r[t] + ε and maps (a, b, σ_ε) to
//     (κ, θ, σ) in closed form.
//   - MLE maximises the exact Ornstein-Uhlenbeck transition likelihood with a bounded
//     quasi-Newton search seeded by OLS, and degrades to OLS if the search fails.
package calibration

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/meenmo/shortrate/vasicek"
)

var (
	// ErrInsufficientData is returned when the series is shorter than Settings.MinObservations.
	ErrInsufficientData = errors.New("calibration: insufficient data")
	// ErrInvalidMethod is returned for an unrecognised calibration method name.
	ErrInvalidMethod = errors.New("calibration: invalid method")
	// ErrInvalidStep is returned when dt is not a positive finite number.
	ErrInvalidStep = errors.New("calibration: invalid step size")
	// ErrInvalidSeries is returned when the series contains NaN or Inf.
	ErrInvalidSeries = errors.New("calibration: invalid series")
	// ErrRegression is returned when the AR(1) fit is numerically undefined
	// (e.g. a constant series).
	ErrRegression = errors.New("calibration: regression failed")

	// errOptimization marks a likelihood search that did not converge. It never leaves
	// the package: MLE recovers from it by falling back to OLS.
	errOptimization = errors.New("calibration: optimization failed")
)

// Method selects an estimator.
type Method string

const (
	MethodOLS Method = "ols"
	MethodMLE Method = "mle"
)

// ParseMethod maps "ols" / "mle" (case-insensitive) to a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case MethodOLS:
		return MethodOLS, nil
	case MethodMLE:
		return MethodMLE, nil
	default:
		return "", fmt.Errorf("%w: %q (use %q or %q)", ErrInvalidMethod, s, MethodOLS, MethodMLE)
	}
}

// Result is a calibrated parameter set plus how it was obtained.
type Result struct {
	Params vasicek.Params `json:"params"`
	// Method is the estimator that produced Params. It differs from the requested
	// method when MLE degraded to OLS.
	Method Method `json:"method"`
	// Fallback is true when an earlier strategy in the chain failed.
	Fallback bool `json:"fallback"`
	// SlopeClamped is true when the AR(1) slope left (0, 1) and was forced into
	// [SlopeFloor, SlopeCeiling]; the fit is then not a stable mean-reverting estimate.
	SlopeClamped bool `json:"slope_clamped"`
	// Iterations is the number of optimizer major iterations (0 for OLS).
	Iterations int `json:"iterations"`
	// NegLogLikelihood of Params under the exact transition density.
	NegLogLikelihood float64 `json:"neg_log_likelihood"`
}

// Calibrator runs the estimators with a fixed Settings and logger.
type Calibrator struct {
	settings Settings
	logger   *zap.Logger
}

// New returns a Calibrator with DefaultSettings and a no-op logger unless overridden.
func New(opts ...Option) *Calibrator {
	c := &Calibrator{settings: DefaultSettings, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCalibrator = New()

// OLS calibrates with DefaultSettings. See Calibrator.OLS.
func OLS(rates []float64, dt float64) (Result, error) {
	return defaultCalibrator.OLS(rates, dt)
}

// MLE calibrates with DefaultSettings. See Calibrator.MLE.
func MLE(rates []float64, dt float64) (Result, error) {
	return defaultCalibrator.MLE(rates, dt)
}

// Calibrate dispatches to OLS or MLE.
func (c *Calibrator) Calibrate(method Method, rates []float64, dt float64) (Result, error) {
	switch method {
	case MethodOLS:
		return c.OLS(rates, dt)
	case MethodMLE:
		return c.MLE(rates, dt)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
}

// checkInput enforces the shared preconditions of every estimator.
func (c *Calibrator) checkInput(rates []float64, dt float64) error {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return fmt.Errorf("%w: dt=%v", ErrInvalidStep, dt)
	}
	if len(rates) < c.settings.MinObservations {
		return fmt.Errorf("%w: %d observations, need at least %d",
			ErrInsufficientData, len(rates), c.settings.MinObservations)
	}
	for i, r := range rates {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return fmt.Errorf("%w: observation %d is %v", ErrInvalidSeries, i, r)
		}
	}
	return nil
}

// fatal reports errors that no fallback strategy can recover from.
func fatal(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrInvalidStep) ||
		errors.Is(err, ErrInvalidSeries)
}
