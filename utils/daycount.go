package utils

import "time"

// DayCount names a day count convention.
type DayCount string

const (
	ACT360    DayCount = "ACT/360"
	ACT365F   DayCount = "ACT/365F"
	Thirty360 DayCount = "30E/360"
)

// YearFraction computes the year fraction between two dates under dc.
// Unknown conventions fall back to ACT/365F.
func YearFraction(start, end time.Time, dc DayCount) float64 {
	switch dc {
	case ACT360:
		return Days(start, end) / 360.0
	case Thirty360:
		// 30E/360: both day-of-month values capped at 30
		d1 := min(start.Day(), 30)
		d2 := min(end.Day(), 30)
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	default:
		return Days(start, end) / 365.0
	}
}

// TradingDaysPerYear is the business-day year used for daily series.
const TradingDaysPerYear = 252

// IsDailyStep reports whether dt is one business day of a TradingDaysPerYear year.
func IsDailyStep(dt float64) bool {
	const tol = 1e-9
	d := dt*TradingDaysPerYear - 1
	return d > -tol && d < tol
}
