package calibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/shortrate/vasicek"
)

// QualityReport summarises standardized one-step-ahead residuals
//
//	z[t] = (r[t+1] − E[r[t+1] | r[t]]) / sqrt(Var[r[t+1] | r[t]])
//
// which are i.i.d. N(0, 1) when the model is correctly specified.
type QualityReport struct {
	N                int     `json:"n"`
	RMSE             float64 `json:"rmse"`
	MeanResidual     float64 `json:"mean_residual"`
	ResidualAutocorr float64 `json:"residual_autocorr"`
	// LjungBoxLags is the number of autocorrelation lags in the portmanteau test.
	LjungBoxLags int `json:"ljung_box_lags"`
	// LjungBoxQ and LjungBoxPValue test the joint null of no residual autocorrelation
	// up to LjungBoxLags. Both are nil when the residuals are too few or constant.
	LjungBoxQ      *float64 `json:"ljung_box_q,omitempty"`
	LjungBoxPValue *float64 `json:"ljung_box_pvalue,omitempty"`
}

// maxLjungBoxLags caps the portmanteau test; short series use n/4 lags.
const maxLjungBoxLags = 10

// Quality evaluates params against rates. It never alters params.
func Quality(rates []float64, params vasicek.Params, dt float64) (QualityReport, error) {
	return defaultCalibrator.Quality(rates, params, dt)
}

func (c *Calibrator) Quality(rates []float64, params vasicek.Params, dt float64) (QualityReport, error) {
	if err := c.checkInput(rates, dt); err != nil {
		return QualityReport{}, err
	}
	if err := params.Validate(); err != nil {
		return QualityReport{}, fmt.Errorf("Quality: %w", err)
	}

	sd := math.Sqrt(params.ConditionalVariance(dt))
	resid := make([]float64, len(rates)-1)
	var sumSq float64
	for i := 1; i < len(rates); i++ {
		z := (rates[i] - params.ConditionalMean(rates[i-1], dt)) / sd
		resid[i-1] = z
		sumSq += z * z
	}
	n := len(resid)

	report := QualityReport{
		N:            n,
		RMSE:         math.Sqrt(sumSq / float64(n)),
		MeanResidual: stat.Mean(resid, nil),
	}
	if n > 2 {
		if rho := stat.Correlation(resid[:n-1], resid[1:], nil); finite(rho) {
			report.ResidualAutocorr = rho
		}
	}
	if h, q, p, ok := ljungBox(resid); ok {
		report.LjungBoxLags = h
		report.LjungBoxQ = &q
		report.LjungBoxPValue = &p
	}
	return report, nil
}

// ljungBox computes Q = n(n+2)·Σ_{k=1..h} ρ_k²/(n−k) with ρ_k the sample
// autocorrelation at lag k, and its χ²(h) upper-tail p-value.
func ljungBox(x []float64) (lags int, q, pValue float64, ok bool) {
	n := len(x)
	h := n / 4
	if h > maxLjungBoxLags {
		h = maxLjungBoxLags
	}
	if h < 1 {
		return 0, 0, 0, false
	}

	mean := stat.Mean(x, nil)
	var denom float64
	for _, v := range x {
		denom += (v - mean) * (v - mean)
	}
	if denom == 0 {
		return 0, 0, 0, false
	}

	for k := 1; k <= h; k++ {
		var num float64
		for t := k; t < n; t++ {
			num += (x[t] - mean) * (x[t-k] - mean)
		}
		rho := num / denom
		q += rho * rho / float64(n-k)
	}
	q *= float64(n) * float64(n+2)

	chi := distuv.ChiSquared{K: float64(h)}
	return h, q, chi.Survival(q), true
}
