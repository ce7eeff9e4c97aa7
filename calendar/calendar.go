package calendar

import "time"

// CalendarID identifies a holiday calendar.
type CalendarID string

const (
	// TARGET is the euro-area settlement calendar the Euribor fixings follow.
	TARGET CalendarID = "TARGET"
	// WeekendsOnly treats every weekday as a business day.
	WeekendsOnly CalendarID = "WEEKENDS"
)

func isHoliday(cal CalendarID, t time.Time) bool {
	switch cal {
	case TARGET:
		return isTargetHoliday(t)
	default:
		return false
	}
}

// isTargetHoliday covers the fixed TARGET2 closing days: New Year's Day, Good Friday,
// Easter Monday, Labour Day, Christmas Day and 26 December.
func isTargetHoliday(t time.Time) bool {
	y, m, d := t.Date()
	switch {
	case m == time.January && d == 1,
		m == time.May && d == 1,
		m == time.December && (d == 25 || d == 26):
		return true
	}
	easter := EasterSunday(y)
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return day.Equal(easter.AddDate(0, 0, -2)) || day.Equal(easter.AddDate(0, 0, 1))
}

// EasterSunday returns Western Easter for year y (anonymous Gregorian algorithm).
func EasterSunday(y int) time.Time {
	a := y % 19
	b, c := y/100, y%100
	d, e := b/4, b%4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i, k := c/4, c%4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(y, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(cal CalendarID, t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(cal, t)
}

// AdjustFollowing rolls t forward to the next business day.
func AdjustFollowing(cal CalendarID, t time.Time) time.Time {
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(cal CalendarID, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(cal, t) {
			n -= step
		}
	}
	return t
}

// BusinessDays returns start followed by the next n business days after it.
func BusinessDays(cal CalendarID, start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n+1)
	out = append(out, start)
	t := start
	for i := 0; i < n; i++ {
		t = AddBusinessDays(cal, t, 1)
		out = append(out, t)
	}
	return out
}
