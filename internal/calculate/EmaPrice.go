package calculate

// EMA returns the exponential moving average seeded with the simple
// average of the first period values.
func EMA(prices []float64, period int) Series {
	out := undefined(len(prices))
	if period <= 0 || len(prices) < period {
		return out
	}

	// Multiplier for weighting the EMA
	multiplier := 2.0 / float64(period+1)

	ema := calculateAverage(prices[:period])
	out[period-1] = ema
	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		out[i] = ema
	}

	return out
}
