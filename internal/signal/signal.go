// Package signal turns indicator series into entry/exit decisions.
// Threshold rules fire on the transition edge only, and any undefined
// input yields no signal.
package signal

import (
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/calculate"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

// Signal is the tri-state decision for one candle
type Signal int

const (
	None Signal = iota
	EnterLong
	ExitLong
)

func (s Signal) String() string {
	switch s {
	case EnterLong:
		return "ENTER_LONG"
	case ExitLong:
		return "EXIT_LONG"
	default:
		return "NONE"
	}
}

// Series is a signal per candle
type Series []Signal

// Count returns how many entries equal s.
func (ss Series) Count(s Signal) int {
	n := 0
	for _, v := range ss {
		if v == s {
			n++
		}
	}
	return n
}

// Merge combines entry and exit edges into one tri-state series.
// A candle flagged both ways is ambiguous and yields None.
func Merge(enter, exit []bool) Series {
	n := len(enter)
	if len(exit) > n {
		n = len(exit)
	}
	out := make(Series, n)
	for i := range out {
		e := i < len(enter) && enter[i]
		x := i < len(exit) && exit[i]
		switch {
		case e && !x:
			out[i] = EnterLong
		case x && !e:
			out[i] = ExitLong
		}
	}
	return out
}

// CrossBelow fires where the series moves from >= threshold to < threshold.
func CrossBelow(s calculate.Series, threshold float64) []bool {
	out := make([]bool, len(s))
	for i := 1; i < len(s); i++ {
		prev, ok1 := s.At(i - 1)
		cur, ok2 := s.At(i)
		out[i] = ok1 && ok2 && prev >= threshold && cur < threshold
	}
	return out
}

// CrossAbove fires where the series moves from <= threshold to > threshold.
func CrossAbove(s calculate.Series, threshold float64) []bool {
	out := make([]bool, len(s))
	for i := 1; i < len(s); i++ {
		prev, ok1 := s.At(i - 1)
		cur, ok2 := s.At(i)
		out[i] = ok1 && ok2 && prev <= threshold && cur > threshold
	}
	return out
}

// CrossAboveSeries fires where a flips from a <= b to a > b.
func CrossAboveSeries(a, b calculate.Series) []bool {
	out := make([]bool, len(a))
	for i := 1; i < len(a) && i < len(b); i++ {
		pa, ok1 := a.At(i - 1)
		pb, ok2 := b.At(i - 1)
		ca, ok3 := a.At(i)
		cb, ok4 := b.At(i)
		out[i] = ok1 && ok2 && ok3 && ok4 && pa <= pb && ca > cb
	}
	return out
}

// CrossBelowSeries fires where a flips from a >= b to a < b.
func CrossBelowSeries(a, b calculate.Series) []bool {
	out := make([]bool, len(a))
	for i := 1; i < len(a) && i < len(b); i++ {
		pa, ok1 := a.At(i - 1)
		pb, ok2 := b.At(i - 1)
		ca, ok3 := a.At(i)
		cb, ok4 := b.At(i)
		out[i] = ok1 && ok2 && ok3 && ok4 && pa >= pb && ca < cb
	}
	return out
}

// Above is a level rule: true while the value is strictly above threshold.
func Above(s calculate.Series, threshold float64) []bool {
	out := make([]bool, len(s))
	for i := range s {
		v, ok := s.At(i)
		out[i] = ok && v > threshold
	}
	return out
}

// Below is a level rule: true while the value is strictly below threshold.
func Below(s calculate.Series, threshold float64) []bool {
	out := make([]bool, len(s))
	for i := range s {
		v, ok := s.At(i)
		out[i] = ok && v < threshold
	}
	return out
}

// AboveSeries is a level rule against a moving level: true while a > b.
func AboveSeries(a, b calculate.Series) []bool {
	out := make([]bool, len(a))
	for i := range a {
		va, ok1 := a.At(i)
		vb, ok2 := b.At(i)
		out[i] = ok1 && ok2 && va > vb
	}
	return out
}

// BelowSeries is the level rule for a < b.
func BelowSeries(a, b calculate.Series) []bool {
	out := make([]bool, len(a))
	for i := range a {
		va, ok1 := a.At(i)
		vb, ok2 := b.At(i)
		out[i] = ok1 && ok2 && va < vb
	}
	return out
}

// Edge fires where cond turns true. The bar before the first one is false,
// so a condition already true on its first defined bar fires there.
func Edge(cond []bool) []bool {
	out := make([]bool, len(cond))
	for i, c := range cond {
		out[i] = c && (i == 0 || !cond[i-1])
	}
	return out
}

// VolumeSpike fires when volume exceeds multiple times its rolling average
// on a bullish candle.
func VolumeSpike(candles []models.Candle, volumeMA calculate.Series, multiple float64) []bool {
	out := make([]bool, len(candles))
	for i, c := range candles {
		avg, ok := volumeMA.At(i)
		out[i] = ok && c.Volume > avg*multiple && c.Bullish()
	}
	return out
}
