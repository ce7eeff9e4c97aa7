package vasicek

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams reports a parameter set for which the transition law is undefined.
var ErrInvalidParams = errors.New("vasicek: invalid parameters")

// Params fully describes one calibrated Vasicek model:
//
//	dr = Kappa·(Theta − r)·dt + Sigma·dW,  r(0) = R0
//
// Rates are decimal fractions (0.03 for 3%), time is in years.
type Params struct {
	// Kappa is the annualized mean-reversion speed. Must be > 0.
	Kappa float64 `json:"kappa"`
	// Theta is the long-run equilibrium level.
	Theta float64 `json:"theta"`
	// Sigma is the annualized instantaneous volatility. Must be > 0.
	Sigma float64 `json:"sigma"`
	// R0 is the current rate, used as the first row of every simulation.
	R0 float64 `json:"r0"`
}

// Validate checks Kappa > 0, Sigma > 0 and that every field is finite.
func (p Params) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"kappa", p.Kappa}, {"theta", p.Theta}, {"sigma", p.Sigma}, {"r0", p.R0}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite (%v)", ErrInvalidParams, f.name, f.v)
		}
	}
	if p.Kappa <= 0 {
		return fmt.Errorf("%w: kappa must be positive, got %g", ErrInvalidParams, p.Kappa)
	}
	if p.Sigma <= 0 {
		return fmt.Errorf("%w: sigma must be positive, got %g", ErrInvalidParams, p.Sigma)
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("Vasicek(kappa=%.4f, theta=%.4f, sigma=%.4f, r0=%.4f)",
		p.Kappa, p.Theta, p.Sigma, p.R0)
}
