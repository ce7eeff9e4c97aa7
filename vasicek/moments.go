package vasicek

import "math"

// ---------------------------------------------------------------------------
// Exact Ornstein-Uhlenbeck transition law
// ---------------------------------------------------------------------------
//
//	r(t+h) | r(t) ~ N( Theta + (r(t) − Theta)·e^{−Kappa·h},
//	                   Sigma²·(1 − e^{−2·Kappa·h}) / (2·Kappa) )
//
// The helpers below assume Validate() passes; they do not re-check.

// Decay returns e^{−Kappa·h}, the weight the conditional mean keeps on the current rate.
func (p Params) Decay(h float64) float64 {
	return math.Exp(-p.Kappa * h)
}

// ConditionalMean is E[r(t+h) | r(t) = r].
func (p Params) ConditionalMean(r, h float64) float64 {
	return p.Theta + (r-p.Theta)*p.Decay(h)
}

// ConditionalVariance is Var[r(t+h) | r(t)]. It does not depend on r.
func (p Params) ConditionalVariance(h float64) float64 {
	return p.Sigma * p.Sigma * (1 - math.Exp(-2*p.Kappa*h)) / (2 * p.Kappa)
}

// TerminalMean is the theoretical mean of r(T) started from R0.
func (p Params) TerminalMean(T float64) float64 {
	return p.ConditionalMean(p.R0, T)
}

// TerminalVariance is the theoretical variance of r(T) started from R0.
func (p Params) TerminalVariance(T float64) float64 {
	return p.ConditionalVariance(T)
}

// TerminalStd is sqrt(TerminalVariance(T)).
func (p Params) TerminalStd(T float64) float64 {
	return math.Sqrt(p.TerminalVariance(T))
}

// StationaryVariance is the T → ∞ limit Sigma²/(2·Kappa).
func (p Params) StationaryVariance() float64 {
	return p.Sigma * p.Sigma / (2 * p.Kappa)
}

// HalfLife is the time for the expected gap to Theta to halve: ln 2 / Kappa.
func (p Params) HalfLife() float64 {
	return math.Ln2 / p.Kappa
}
