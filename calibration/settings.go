package calibration

import "go.uber.org/zap"

// Settings holds estimator constants: minimum sample size, numeric floors, and the
// box constraints and iteration limits of the likelihood optimizer.
type Settings struct {
	// MinObservations is the shortest series either estimator accepts.
	MinObservations int

	// SlopeFloor and SlopeCeiling bound the AR(1) slope when the fit leaves (0, 1).
	SlopeFloor   float64
	SlopeCeiling float64

	// KappaFloor is the smallest reversion speed a calibrator returns.
	KappaFloor float64

	// SigmaFallback replaces a non-positive or non-finite regression volatility.
	SigmaFallback float64

	// Likelihood box: kappa ∈ [KappaMin, KappaMax], sigma ∈ [SigmaMin, SigmaMax],
	// theta ∈ [min(series) − ThetaMargin, max(series) + ThetaMargin].
	KappaMin    float64
	KappaMax    float64
	SigmaMin    float64
	SigmaMax    float64
	ThetaMargin float64

	// Penalty is returned by the likelihood objective wherever it is undefined.
	Penalty float64

	// SeedKappa is the optimizer's starting reversion speed when regression fails.
	SeedKappa float64

	// MaxIterations caps optimizer major iterations.
	MaxIterations int

	// GradientThreshold stops the optimizer once the gradient infinity-norm drops below it.
	// Finite-difference gradients of an NLL in the thousands carry noise well above 1e-8.
	GradientThreshold float64
}

// DefaultSettings matches the constants of the reference estimators.
var DefaultSettings = Settings{
	MinObservations:   10,
	SlopeFloor:        0.001,
	SlopeCeiling:      0.999,
	KappaFloor:        0.001,
	SigmaFallback:     0.01,
	KappaMin:          0.001,
	KappaMax:          10,
	SigmaMin:          0.001,
	SigmaMax:          1,
	ThetaMargin:       0.01,
	Penalty:           1e10,
	SeedKappa:         0.1,
	MaxIterations:     500,
	GradientThreshold: 1e-5,
}

// Option configures a Calibrator.
type Option func(*Calibrator)

// WithLogger sets the logger used for fallback and clamp diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Calibrator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSettings replaces DefaultSettings.
func WithSettings(s Settings) Option {
	return func(c *Calibrator) {
		c.settings = s
	}
}
