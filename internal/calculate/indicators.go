// Package calculate holds the indicator calculators. Every function is pure:
// it reads an ordered series and returns a new series of the same length
// where warm-up positions hold NaN.
package calculate

import (
	"math"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

// Series is an indicator series aligned 1:1 with the candles it was built from.
// NaN marks an undefined value.
type Series []float64

// Defined reports whether v holds a value.
func Defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// At returns the value at i and whether it is defined. Out of range is undefined.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) {
		return math.NaN(), false
	}
	return s[i], Defined(s[i])
}

// FirstDefined returns the index of the first defined value, or len(s) if none.
func (s Series) FirstDefined() int {
	for i, v := range s {
		if Defined(v) {
			return i
		}
	}
	return len(s)
}

// Scale returns s multiplied by k, keeping undefined values undefined.
func (s Series) Scale(k float64) Series {
	out := make(Series, len(s))
	for i, v := range s {
		out[i] = v * k
	}
	return out
}

// Shift returns s delayed by n positions: out[i] = s[i-n].
func (s Series) Shift(n int) Series {
	out := undefined(len(s))
	for i := range s {
		if j := i - n; j >= 0 && j < len(s) {
			out[i] = s[j]
		}
	}
	return out
}

func undefined(n int) Series {
	out := make(Series, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Closes extracts close prices
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Opens extracts open prices
func Opens(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Open
	}
	return out
}

// Highs extracts high prices
func Highs(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts low prices
func Lows(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// Volumes extracts volumes
func Volumes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
