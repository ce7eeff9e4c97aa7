package simulation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/meenmo/shortrate/vasicek"
)

var (
	// ErrInvalidScheme is returned for an unrecognised scheme name.
	ErrInvalidScheme = errors.New("simulation: invalid scheme")
	// ErrInvalidConfig is returned for negative steps, non-positive paths or dt.
	ErrInvalidConfig = errors.New("simulation: invalid config")
)

// Scheme selects the one-step transition used to advance paths.
type Scheme string

const (
	// SchemeExact samples the closed-form OU transition; no discretization bias.
	SchemeExact Scheme = "exact"
	// SchemeEuler is the first-order Euler-Maruyama step, biased when Kappa·dt is not small.
	SchemeEuler Scheme = "euler"
)

// ParseScheme maps "exact" / "euler" (case-insensitive) to a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeExact:
		return SchemeExact, nil
	case SchemeEuler:
		return SchemeEuler, nil
	default:
		return "", fmt.Errorf("%w: %q (use %q or %q)", ErrInvalidScheme, s, SchemeExact, SchemeEuler)
	}
}

// transition holds the per-step constants of a scheme, computed once per run.
//
//	exact: next = θ + (prev − θ)·e^{−κ·dt} + sqrt(σ²(1 − e^{−2κ·dt})/(2κ))·z
//	euler: next = prev + κ(θ − prev)·dt + σ·sqrt(dt)·z
type transition struct {
	scheme Scheme
	kappa  float64
	theta  float64
	dt     float64
	decay  float64 // exact: e^{−κ·dt}
	shock  float64 // exact: conditional std; euler: σ·sqrt(dt)
}

func newTransition(p vasicek.Params, dt float64, scheme Scheme) (transition, error) {
	tr := transition{scheme: scheme, kappa: p.Kappa, theta: p.Theta, dt: dt}
	switch scheme {
	case SchemeExact:
		tr.decay = p.Decay(dt)
		tr.shock = math.Sqrt(p.ConditionalVariance(dt))
	case SchemeEuler:
		tr.shock = p.Sigma * math.Sqrt(dt)
	default:
		return transition{}, fmt.Errorf("%w: %q", ErrInvalidScheme, scheme)
	}
	return tr, nil
}

func (tr transition) next(prev, z float64) float64 {
	if tr.scheme == SchemeExact {
		return tr.theta + (prev-tr.theta)*tr.decay + tr.shock*z
	}
	return prev + tr.kappa*(tr.theta-prev)*tr.dt + tr.shock*z
}

// Stepper advances a single path one step at a time. It is the scalar reference for
// Simulate: fed the same normal draws, it reproduces one column of the matrix.
type Stepper struct {
	tr    transition
	state float64
}

// NewStepper starts a path at p.R0.
func NewStepper(p vasicek.Params, dt float64, scheme Scheme) (*Stepper, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := checkStep(dt); err != nil {
		return nil, err
	}
	tr, err := newTransition(p, dt, scheme)
	if err != nil {
		return nil, err
	}
	return &Stepper{tr: tr, state: p.R0}, nil
}

// Step consumes one standard-normal draw and returns the new state.
func (s *Stepper) Step(z float64) float64 {
	s.state = s.tr.next(s.state, z)
	return s.state
}

// State is the current rate.
func (s *Stepper) State() float64 {
	return s.state
}

func checkStep(dt float64) error {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return fmt.Errorf("%w: dt must be positive and finite, got %v", ErrInvalidConfig, dt)
	}
	return nil
}
