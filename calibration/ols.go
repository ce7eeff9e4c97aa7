package calibration

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/meenmo/shortrate/vasicek"
)

// OLS calibrates by AR(1) regression:
//
//	r[t+1] = a + b·r[t] + ε
//	κ = −ln(b)/dt,  θ = a/(1 − b),  σ = sd(ε)·sqrt(2κ/(1 − b²))
//
// sd(ε) uses n−2 degrees of freedom. A slope outside (0, 1) is clamped into
// [SlopeFloor, SlopeCeiling] and flagged on the Result. R0 is the last observation.
func (c *Calibrator) OLS(rates []float64, dt float64) (Result, error) {
	if err := c.checkInput(rates, dt); err != nil {
		return Result{}, err
	}
	s := c.settings

	x := rates[:len(rates)-1]
	y := rates[1:]
	n := len(x)

	a, b := stat.LinearRegression(x, y, nil, false)
	if !finite(a) || !finite(b) {
		return Result{}, fmt.Errorf("%w: non-finite coefficients a=%v b=%v", ErrRegression, a, b)
	}

	clamped := false
	if b <= 0 || b >= 1 {
		c.logger.Warn("AR(1) slope outside (0, 1); clamping",
			zap.Float64("slope", b),
			zap.Float64("floor", s.SlopeFloor),
			zap.Float64("ceiling", s.SlopeCeiling))
		b = clamp(b, s.SlopeFloor, s.SlopeCeiling)
		clamped = true
	}

	kappa := -math.Log(b) / dt
	theta := a / (1 - b)

	// Residuals keep the fitted intercept even when the slope was clamped.
	resid := make([]float64, n)
	for i := range x {
		resid[i] = y[i] - (a + b*x[i])
	}
	_, variance := stat.MeanVariance(resid, nil) // n−1 denominator
	residStd := math.Sqrt(variance * float64(n-1) / float64(n-2))

	var sigma float64
	if kappa > 0 {
		sigma = residStd * math.Sqrt(2*kappa/(1-b*b))
	} else {
		sigma = residStd / math.Sqrt(dt)
	}
	if !finite(sigma) || sigma <= 0 {
		sigma = s.SigmaFallback
	}

	p := vasicek.Params{
		Kappa: math.Max(s.KappaFloor, kappa),
		Theta: theta,
		Sigma: sigma,
		R0:    rates[len(rates)-1],
	}
	if err := p.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRegression, err)
	}

	return Result{
		Params:           p,
		Method:           MethodOLS,
		SlopeClamped:     clamped,
		NegLogLikelihood: negLogLikelihood(rates, dt, s.Penalty)(p.Kappa, p.Theta, p.Sigma),
	}, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
