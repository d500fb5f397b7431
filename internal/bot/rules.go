package bot

import (
	"errors"
	"fmt"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/calculate"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/platform/format"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/signal"
)

var ErrInsufficientData = errors.New("not enough candles for the indicator")

// Reading is a rule's view of the latest candle.
type Reading struct {
	Signal signal.Signal
	Value  float64 // headline indicator value, exported as a gauge
	Detail string  // one line for the message body
}

// Rule turns recent closes into a reading.
type Rule interface {
	Name() string
	Evaluate(closes []float64) (Reading, error)
}

// RSIRule buys below Oversold and sells above Overbought, using Wilder's RSI
// of the latest close.
type RSIRule struct {
	Period     int
	Oversold   float64
	Overbought float64
}

func (r RSIRule) Name() string { return "rsi" }

func (r RSIRule) Evaluate(closes []float64) (Reading, error) {
	rsi, ok := calculate.LastRSI(closes, r.Period)
	if !ok {
		return Reading{}, fmt.Errorf("rsi(%d) over %d closes: %w", r.Period, len(closes), ErrInsufficientData)
	}

	reading := Reading{Value: rsi}
	switch {
	case rsi < r.Oversold:
		reading.Signal = signal.EnterLong
		reading.Detail = fmt.Sprintf("RSI:    %.1f (oversold < %g)", rsi, r.Oversold)
	case rsi > r.Overbought:
		reading.Signal = signal.ExitLong
		reading.Detail = fmt.Sprintf("RSI:    %.1f (overbought > %g)", rsi, r.Overbought)
	default:
		reading.Detail = fmt.Sprintf("RSI:    %.1f (neutral: %g-%g)", rsi, r.Oversold, r.Overbought)
	}
	return reading, nil
}

// MACrossRule buys when the short moving average crosses above the long one
// on the latest close and sells on the opposite cross.
type MACrossRule struct {
	Short int
	Long  int
}

func (r MACrossRule) Name() string { return "ma" }

func (r MACrossRule) Evaluate(closes []float64) (Reading, error) {
	short := calculate.RollingMean(closes, r.Short)
	long := calculate.RollingMean(closes, r.Long)

	last := len(closes) - 1
	s, okS := short.At(last)
	l, okL := long.At(last)
	if _, okPrev := long.At(last - 1); !okS || !okL || !okPrev {
		return Reading{}, fmt.Errorf("ma %d/%d over %d closes: %w", r.Short, r.Long, len(closes), ErrInsufficientData)
	}

	reading := Reading{Value: s - l}
	label := "above"
	if s < l {
		label = "below"
	}
	switch {
	case signal.CrossAboveSeries(short, long)[last]:
		reading.Signal = signal.EnterLong
		label = "golden cross"
	case signal.CrossBelowSeries(short, long)[last]:
		reading.Signal = signal.ExitLong
		label = "death cross"
	}
	reading.Detail = fmt.Sprintf("MA:     %s / %s (%d/%d, %s)", format.Money(s), format.Money(l), r.Short, r.Long, label)
	return reading, nil
}
