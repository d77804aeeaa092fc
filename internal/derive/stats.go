// Package derive turns fetched collections into the shapes the console
// screens render. Every helper is a pure function of its arguments;
// malformed records are dropped rather than reported.
package derive

import "sort"

type Quartile struct {
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
}

// Quartiles sorts a copy of values and applies the midpoint rule. Q3 is the
// median of the upper half; for odd counts the middle element belongs to
// neither half, and a single value is its own Q3.
func Quartiles(values []float64) Quartile {
	if len(values) == 0 {
		return Quartile{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 1 {
		return Quartile{Median: sorted[0], Q3: sorted[0]}
	}
	return Quartile{Median: median(sorted), Q3: median(sorted[(n+1)/2:])}
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Percentage is score out of max on a 0-100 scale, 0 when max is not positive.
func Percentage(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return score * 100 / max
}

// Grade bands a percentage. The >/>= split per band is deliberate: exactly
// 80 is a B+.
func Grade(pct float64) string {
	switch {
	case pct >= 90:
		return "A+"
	case pct > 80:
		return "A"
	case pct > 70:
		return "B+"
	case pct > 60:
		return "B"
	case pct > 50:
		return "C"
	case pct >= 40:
		return "D"
	default:
		return "F"
	}
}
