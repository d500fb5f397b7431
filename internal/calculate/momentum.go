package calculate

import "math"

// Momentum is the percentage change over lookback periods: v[i]/v[i-lookback] - 1.
func Momentum(values []float64, lookback int) Series {
	out := undefined(len(values))
	if lookback <= 0 {
		return out
	}

	for i := lookback; i < len(values); i++ {
		base := values[i-lookback]
		if base == 0 {
			continue
		}
		out[i] = values[i]/base - 1
	}

	return out
}

// LogReturns returns ln(v[i]/v[i-1]); index 0 and non-positive prices are undefined.
func LogReturns(values []float64) Series {
	out := undefined(len(values))
	for i := 1; i < len(values); i++ {
		if values[i] <= 0 || values[i-1] <= 0 {
			continue
		}
		out[i] = math.Log(values[i] / values[i-1])
	}
	return out
}
