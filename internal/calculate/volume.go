package calculate

// VolumeRatio is volume divided by its own rolling mean over window.
// A zero average leaves the value undefined.
func VolumeRatio(volume []float64, window int) Series {
	avg := RollingMean(volume, window)
	out := undefined(len(volume))

	for i, v := range volume {
		if !Defined(avg[i]) || avg[i] == 0 {
			continue
		}
		out[i] = v / avg[i]
	}

	return out
}
