package vasicek

import "math"

// StandardTenors are the maturities (years) reported in the model zero curve.
var StandardTenors = []float64{0.25, 0.5, 1, 2, 3, 5, 7, 10}

// CurvePoint is one node of the model-implied zero curve.
type CurvePoint struct {
	Tenor          float64 `json:"tenor"`
	DiscountFactor float64 `json:"discount_factor"`
	ZeroRate       float64 `json:"zero_rate"`
}

// DiscountFactor returns the closed-form zero-coupon bond price P(0, tau) given r(0) = R0:
//
//	B(τ)    = (1 − e^{−κτ}) / κ
//	ln A(τ) = (θ − σ²/(2κ²))·(B(τ) − τ) − σ²·B(τ)² / (4κ)
//	P(0,τ)  = A(τ)·e^{−B(τ)·r0}
func (p Params) DiscountFactor(tau float64) float64 {
	if tau <= 0 {
		return 1.0
	}
	k, s := p.Kappa, p.Sigma
	b := (1 - math.Exp(-k*tau)) / k
	lnA := (p.Theta-s*s/(2*k*k))*(b-tau) - s*s*b*b/(4*k)
	return math.Exp(lnA - b*p.R0)
}

// ZeroRate is the continuously compounded zero rate −ln P(0,τ)/τ, as a decimal fraction.
// The τ → 0 limit is R0.
func (p Params) ZeroRate(tau float64) float64 {
	if tau <= 0 {
		return p.R0
	}
	return -math.Log(p.DiscountFactor(tau)) / tau
}

// LongRate is the τ → ∞ limit of ZeroRate: θ − σ²/(2κ²).
func (p Params) LongRate() float64 {
	return p.Theta - p.Sigma*p.Sigma/(2*p.Kappa*p.Kappa)
}

// ZeroCurve evaluates DiscountFactor and ZeroRate at each tenor.
func (p Params) ZeroCurve(tenors []float64) []CurvePoint {
	out := make([]CurvePoint, 0, len(tenors))
	for _, t := range tenors {
		out = append(out, CurvePoint{
			Tenor:          t,
			DiscountFactor: p.DiscountFactor(t),
			ZeroRate:       p.ZeroRate(t),
		})
	}
	return out
}
