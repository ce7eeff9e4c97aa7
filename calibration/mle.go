package calibration

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/meenmo/shortrate/vasicek"
)

// MLE calibrates by maximising the exact transition likelihood, seeded by OLS.
//
// The search runs over (κ, θ, σ) inside the box given by Settings. When it fails to
// converge the result of OLS is returned with Fallback set; only input errors, or an
// OLS failure during that fallback, reach the caller.
func (c *Calibrator) MLE(rates []float64, dt float64) (Result, error) {
	if err := c.checkInput(rates, dt); err != nil {
		return Result{}, err
	}
	chain := Chain{
		{Method: MethodMLE, Estimate: c.likelihood},
		{Method: MethodOLS, Estimate: c.OLS},
	}
	return chain.Run(rates, dt, c.logger)
}

// negLogLikelihood builds −Σ log N(r[t] | mean_t, var) for the exact OU transition.
// Every undefined region (κ ≤ 0, σ ≤ 0, var ≤ 0, overflow) returns penalty so that the
// optimizer can probe it without failing.
func negLogLikelihood(rates []float64, dt, penalty float64) func(kappa, theta, sigma float64) float64 {
	return func(kappa, theta, sigma float64) float64 {
		if kappa <= 0 || sigma <= 0 {
			return penalty
		}
		decay := math.Exp(-kappa * dt)
		variance := sigma * sigma * (1 - decay*decay) / (2 * kappa)
		if !finite(variance) || variance <= 0 {
			return penalty
		}

		logNorm := -0.5 * math.Log(2*math.Pi*variance)
		var ll float64
		for i := 1; i < len(rates); i++ {
			mean := theta + (rates[i-1]-theta)*decay
			d := rates[i] - mean
			ll += logNorm - 0.5*d*d/variance
		}
		if !finite(ll) {
			return penalty
		}
		return -ll
	}
}

// likelihood is the primary MLE strategy.
func (c *Calibrator) likelihood(rates []float64, dt float64) (Result, error) {
	s := c.settings
	nll := negLogLikelihood(rates, dt, s.Penalty)

	box := newBox(
		[3]float64{s.KappaMin, floats.Min(rates) - s.ThetaMargin, s.SigmaMin},
		[3]float64{s.KappaMax, floats.Max(rates) + s.ThetaMargin, s.SigmaMax},
	)

	seed, err := c.OLS(rates, dt)
	var x0 [3]float64
	if err != nil {
		mean, std := stat.MeanStdDev(rates, nil)
		c.logger.Debug("regression seed unavailable; seeding from sample moments",
			zap.Error(err), zap.Float64("mean", mean), zap.Float64("std", std))
		x0 = [3]float64{s.SeedKappa, mean, std}
	} else {
		x0 = [3]float64{seed.Params.Kappa, seed.Params.Theta, seed.Params.Sigma}
	}

	objective := func(u []float64) float64 {
		p := box.toBounded(u)
		return nll(p[0], p[1], p[2])
	}
	problem := optimize.Problem{
		Func: objective,
		Grad: func(grad, u []float64) {
			fd.Gradient(grad, objective, u, &fd.Settings{Formula: fd.Central})
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   s.MaxIterations,
		GradientThreshold: s.GradientThreshold,
	}

	res, err := optimize.Minimize(problem, box.toUnbounded(x0), settings, &optimize.BFGS{})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", errOptimization, err)
	}
	if !converged(res.Status) {
		return Result{}, fmt.Errorf("%w: status %v after %d iterations",
			errOptimization, res.Status, res.Stats.MajorIterations)
	}

	opt := box.toBounded(res.X)
	p := vasicek.Params{Kappa: opt[0], Theta: opt[1], Sigma: opt[2], R0: rates[len(rates)-1]}
	if err := p.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", errOptimization, err)
	}
	if res.F >= s.Penalty {
		return Result{}, fmt.Errorf("%w: optimum sits in the penalty region", errOptimization)
	}

	return Result{
		Params:           p,
		Method:           MethodMLE,
		Iterations:       res.Stats.MajorIterations,
		NegLogLikelihood: res.F,
	}, nil
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Box constraints via logistic reparameterisation
// ---------------------------------------------------------------------------
//
//	x = lo + (hi − lo) / (1 + e^{−u}),   u = ln((x − lo) / (hi − x))
//
// maps every u ∈ ℝ strictly inside [lo, hi], so the quasi-Newton search runs
// unconstrained while every evaluated point honours the bounds.

// boxInterior keeps seeds off the bounds, where the inverse map diverges.
const boxInterior = 1e-6

type box struct {
	lo, hi [3]float64
}

func newBox(lo, hi [3]float64) box {
	return box{lo: lo, hi: hi}
}

func (b box) toBounded(u []float64) [3]float64 {
	var x [3]float64
	for i := range x {
		x[i] = b.lo[i] + (b.hi[i]-b.lo[i])/(1+math.Exp(-u[i]))
	}
	return x
}

func (b box) toUnbounded(x [3]float64) []float64 {
	u := make([]float64, 3)
	for i := range x {
		width := b.hi[i] - b.lo[i]
		xi := x[i]
		if !finite(xi) {
			xi = b.lo[i] + 0.5*width
		}
		xi = clamp(xi, b.lo[i]+boxInterior*width, b.hi[i]-boxInterior*width)
		u[i] = math.Log((xi - b.lo[i]) / (b.hi[i] - xi))
	}
	return u
}
