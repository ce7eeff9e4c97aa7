// Package marketdata loads short-rate fixings from the ECB Statistical Data Warehouse or
// a local CSV file into a date-ordered Series.
package marketdata

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/meenmo/shortrate/utils"
)

var (
	// ErrNoData is returned when a source yields no usable observations.
	ErrNoData = errors.New("marketdata: no data")
	// ErrDuplicateDate is returned when two observations share a date.
	ErrDuplicateDate = errors.New("marketdata: duplicate date")
	// ErrMissingColumn is returned when a table has no recognisable date or rate column.
	ErrMissingColumn = errors.New("marketdata: missing column")
	// ErrInvalidRate is returned for NaN or infinite rates.
	ErrInvalidRate = errors.New("marketdata: invalid rate")
)

// Observation is one fixing, as a decimal fraction (0.03 = 3%).
type Observation struct {
	Date time.Time
	Rate float64
}

// Metadata describes where a Series came from. Keys follow the loaders: source,
// series_label, url, path, last_date, rate_range, error_api.
type Metadata map[string]string

// Series is a strictly date-ordered rate history.
type Series struct {
	obs []Observation
}

// NewSeries sorts obs by date and rejects duplicate dates and non-finite rates.
func NewSeries(obs []Observation) (*Series, error) {
	if len(obs) == 0 {
		return nil, ErrNoData
	}
	sorted := slices.Clone(obs)
	slices.SortStableFunc(sorted, func(a, b Observation) int { return a.Date.Compare(b.Date) })

	for i, o := range sorted {
		if math.IsNaN(o.Rate) || math.IsInf(o.Rate, 0) {
			return nil, fmt.Errorf("%w: %v on %s", ErrInvalidRate, o.Rate, o.Date.Format(time.DateOnly))
		}
		if i > 0 && o.Date.Equal(sorted[i-1].Date) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDate, o.Date.Format(time.DateOnly))
		}
	}
	return &Series{obs: sorted}, nil
}

// Len is the number of observations.
func (s *Series) Len() int { return len(s.obs) }

// Observations returns a copy of the ordered observations.
func (s *Series) Observations() []Observation { return slices.Clone(s.obs) }

// Values returns the rate column, oldest first.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.obs))
	for i, o := range s.obs {
		out[i] = o.Rate
	}
	return out
}

// Dates returns the date column, oldest first.
func (s *Series) Dates() []time.Time {
	out := make([]time.Time, len(s.obs))
	for i, o := range s.obs {
		out[i] = o.Date
	}
	return out
}

// Last is the most recent observation.
func (s *Series) Last() Observation { return s.obs[len(s.obs)-1] }

// Range returns the smallest and largest rate.
func (s *Series) Range() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, o := range s.obs {
		lo = math.Min(lo, o.Rate)
		hi = math.Max(hi, o.Rate)
	}
	return lo, hi
}

// InferDt returns the median ACT/365F year fraction between consecutive observations,
// the step size implied by the sampling frequency of s.
func InferDt(s *Series) (float64, error) {
	if s == nil || s.Len() < 2 {
		return 0, fmt.Errorf("InferDt: %w: need at least two observations", ErrNoData)
	}
	steps := make([]float64, s.Len()-1)
	for i := 1; i < s.Len(); i++ {
		steps[i-1] = utils.YearFraction(s.obs[i-1].Date, s.obs[i].Date, utils.ACT365F)
	}
	return utils.Median(steps), nil
}

func describe(s *Series) Metadata {
	lo, hi := s.Range()
	return Metadata{
		"last_date":  s.Last().Date.Format(time.DateOnly),
		"rate_range": fmt.Sprintf("%.4f - %.4f", lo, hi),
	}
}
