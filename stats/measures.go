package stats

import "math"

// MaxDrawdown returns the largest relative decline from a running peak:
//
//	max_t (peak_t − x_t) / peak_t,  peak_t = max_{s ≤ t} x_s
//
// Relative drawdown is undefined while the running peak is ≤ 0 (possible for Vasicek
// rates); those points contribute 0.
func MaxDrawdown(path []float64) float64 {
	if len(path) == 0 {
		return 0
	}
	peak := path[0]
	var maxDD float64
	for _, v := range path {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// Percentile returns the q-th percentile (0–100) of an ascending slice, interpolating
// linearly between the closest ranks at position (n−1)·q/100.
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := float64(n-1) * q / 100
	lo := int(math.Floor(pos))
	if lo < 0 {
		return sorted[0]
	}
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
