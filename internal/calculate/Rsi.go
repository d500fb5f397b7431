package calculate

// RSI computes the Relative Strength Index with Wilder's smoothing.
// The first average gain/loss is the simple mean of the first period deltas,
// so the first defined value sits at index period. A zero average loss yields 100.
func RSI(values []float64, period int) Series {
	out := undefined(len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}

	return out
}

// LastRSI returns the RSI of the final value, or ok=false when history is too short.
func LastRSI(values []float64, period int) (float64, bool) {
	return RSI(values, period).At(len(values) - 1)
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
