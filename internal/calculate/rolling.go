package calculate

// RollingMax returns the highest value of the closed window [i-window+1, i].
// Over highs this is the resistance level used by breakout rules.
func RollingMax(values []float64, window int) Series {
	return rollingExtreme(values, window, func(a, b float64) bool { return a > b })
}

// RollingMin returns the lowest value of the closed window [i-window+1, i].
// Over lows this is the support level.
func RollingMin(values []float64, window int) Series {
	return rollingExtreme(values, window, func(a, b float64) bool { return a < b })
}

func rollingExtreme(values []float64, window int, better func(a, b float64) bool) Series {
	out := undefined(len(values))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		best := values[i-window+1]
		for _, v := range values[i-window+2 : i+1] {
			if better(v, best) {
				best = v
			}
		}
		out[i] = best
	}

	return out
}
