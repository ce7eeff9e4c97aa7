package vasicek_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/shortrate/vasicek"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		p    vasicek.Params
		ok   bool
	}{
		{"valid", vasicek.Params{Kappa: 0.5, Theta: 0.03, Sigma: 0.01, R0: 0.02}, true},
		{"negative theta allowed", vasicek.Params{Kappa: 0.5, Theta: -0.005, Sigma: 0.01, R0: -0.01}, true},
		{"zero kappa", vasicek.Params{Kappa: 0, Theta: 0.03, Sigma: 0.01}, false},
		{"negative sigma", vasicek.Params{Kappa: 0.5, Theta: 0.03, Sigma: -0.01}, false},
		{"nan theta", vasicek.Params{Kappa: 0.5, Theta: math.NaN(), Sigma: 0.01}, false},
		{"inf r0", vasicek.Params{Kappa: 0.5, Theta: 0.03, Sigma: 0.01, R0: math.Inf(1)}, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.p.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, vasicek.ErrInvalidParams), "got %v", err)
		})
	}
}

func TestTerminalMoments_LongHorizon(t *testing.T) {
	t.Parallel()

	params := []vasicek.Params{
		{Kappa: 0.5, Theta: 0.03, Sigma: 0.01, R0: 0.05},
		{Kappa: 2.0, Theta: -0.004, Sigma: 0.02, R0: 0.01},
		{Kappa: 0.05, Theta: 0.04, Sigma: 0.005, R0: 0.0},
	}

	for _, p := range params {
		T := 1000.0 / p.Kappa
		assert.InDelta(t, p.Theta, p.TerminalMean(T), 1e-12, "%s", p)
		assert.InDelta(t, p.Sigma*p.Sigma/(2*p.Kappa), p.TerminalVariance(T), 1e-15, "%s", p)
		assert.InDelta(t, p.StationaryVariance(), p.TerminalVariance(T), 1e-15, "%s", p)
	}
}

func TestTerminalMoments_ZeroHorizon(t *testing.T) {
	t.Parallel()

	p := vasicek.Params{Kappa: 0.5, Theta: 0.03, Sigma: 0.01, R0: 0.045}
	assert.Equal(t, p.R0, p.TerminalMean(0))
	assert.Equal(t, 0.0, p.TerminalStd(0))
}

func TestConditionalMoments(t *testing.T) {
	t.Parallel()

	p := vasicek.Params{Kappa: 1.2, Theta: 0.02, Sigma: 0.015, R0: 0.03}
	h := 1.0 / 252

	wantMean := 0.02 + (0.05-0.02)*math.Exp(-1.2*h)
	assert.InDelta(t, wantMean, p.ConditionalMean(0.05, h), 1e-15)

	wantVar := 0.015 * 0.015 * (1 - math.Exp(-2*1.2*h)) / (2 * 1.2)
	assert.InDelta(t, wantVar, p.ConditionalVariance(h), 1e-18)

	// Small-step variance approaches the Euler variance sigma²·h.
	assert.InEpsilon(t, p.Sigma*p.Sigma*h, p.ConditionalVariance(h), 1e-2)
	assert.InDelta(t, math.Ln2/1.2, p.HalfLife(), 1e-15)
}

func TestZeroCurve(t *testing.T) {
	t.Parallel()

	p := vasicek.Params{Kappa: 0.3, Theta: 0.035, Sigma: 0.01, R0: 0.02}

	assert.Equal(t, 1.0, p.DiscountFactor(0))
	assert.Equal(t, p.R0, p.ZeroRate(0))
	assert.InDelta(t, p.R0, p.ZeroRate(1e-6), 1e-7)
	assert.InDelta(t, p.LongRate(), p.ZeroRate(5000), 1e-4)

	curve := p.ZeroCurve(vasicek.StandardTenors)
	require.Len(t, curve, len(vasicek.StandardTenors))

	prevDF := 1.0
	for _, pt := range curve {
		assert.Less(t, pt.DiscountFactor, prevDF, "tenor %v", pt.Tenor)
		assert.InDelta(t, -math.Log(pt.DiscountFactor)/pt.Tenor, pt.ZeroRate, 1e-15)
		prevDF = pt.DiscountFactor
	}

	// Upward sloping when r0 is below the long-run level and volatility is small.
	assert.Greater(t, curve[len(curve)-1].ZeroRate, curve[0].ZeroRate)
}

func TestZeroCurve_DeterministicLimit(t *testing.T) {
	t.Parallel()

	// With vanishing sigma the bond price is exp(-∫ E[r] dt).
	p := vasicek.Params{Kappa: 0.8, Theta: 0.04, Sigma: 1e-9, R0: 0.01}
	tau := 3.0
	integral := p.Theta*tau + (p.R0-p.Theta)*(1-math.Exp(-p.Kappa*tau))/p.Kappa
	assert.InDelta(t, math.Exp(-integral), p.DiscountFactor(tau), 1e-12)
}

func TestString(t *testing.T) {
	t.Parallel()

	p := vasicek.Params{Kappa: 0.5, Theta: 0.03, Sigma: 0.01, R0: 0.025}
	assert.Equal(t, "Vasicek(kappa=0.5000, theta=0.0300, sigma=0.0100, r0=0.0250)", p.String())
}
