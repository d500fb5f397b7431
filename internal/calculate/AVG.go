package calculate

// calculateAverage calculates simple average
func calculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, value := range values {
		sum += value
	}

	return sum / float64(len(values))
}

// RollingMean returns the simple moving average over the closed window [i-window+1, i].
func RollingMean(values []float64, window int) Series {
	out := undefined(len(values))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		out[i] = calculateAverage(values[i-window+1 : i+1])
	}

	return out
}
