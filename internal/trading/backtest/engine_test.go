package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/signal"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/trading/risk"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

func candlesFromCloses(closes ...float64) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			OpenTime: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:     c, High: c, Low: c, Close: c, Volume: 1,
		}
	}
	return out
}

func scripted(warmup int, ss signal.Series) Strategy {
	return Strategy{
		Label:  "scripted",
		Warmup: warmup,
		Build:  func([]models.Candle) Rule { return FromSeries(ss) },
	}
}

func TestEngine_Run_RoundTrip(t *testing.T) {
	candles := candlesFromCloses(100, 100, 110, 121, 100)
	ss := signal.Series{signal.None, signal.EnterLong, signal.EnterLong, signal.ExitLong, signal.None}

	res, err := NewEngine(1000).Run(candles, scripted(0, ss))
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, models.SideBuy, res.Trades[0].Side)
	assert.Equal(t, 1, res.Trades[0].Index)
	assert.InDelta(t, 10, res.Trades[0].Quantity, 1e-9)
	assert.Equal(t, models.SideSell, res.Trades[1].Side)
	assert.InDelta(t, 1210, res.Trades[1].Cash, 1e-9)

	assert.InDeltaSlice(t, []float64{1000, 1000, 1100, 1210, 1210}, res.Equity, 1e-9)
	assert.Equal(t, []float64{100, 100, 110, 121, 100}, res.Prices)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, candles[4].OpenTime, res.Timestamps[4])
}

func TestEngine_Run_WarmupBackfill(t *testing.T) {
	candles := candlesFromCloses(50, 60, 70, 80)
	ss := signal.Series{signal.EnterLong, signal.EnterLong, signal.None, signal.None}

	res, err := NewEngine(1000).Run(candles, scripted(2, ss))
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, []float64{1000, 1000, 1000, 1000}, res.Equity)
}

func TestEngine_Run_ShortHistory(t *testing.T) {
	candles := candlesFromCloses(50, 60)

	res, err := NewEngine(1000).Run(candles, scripted(20, signal.Series{}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 1000}, res.Equity)
}

func TestEngine_Run_ReenterOnExitBar(t *testing.T) {
	candles := candlesFromCloses(10, 10, 20, 20)
	calls := 0

	s := Strategy{
		Label: "reenter",
		Build: func([]models.Candle) Rule {
			return func(i int, pos Position) signal.Signal {
				calls++
				switch {
				case !pos.Long && (i == 0 || i == 2):
					return signal.EnterLong
				case pos.Long && i == 2:
					return signal.ExitLong
				}
				return signal.None
			}
		},
	}

	res, err := NewEngine(100).Run(candles, s)
	require.NoError(t, err)

	require.Len(t, res.Trades, 3)
	assert.Equal(t, models.SideSell, res.Trades[1].Side)
	assert.Equal(t, models.SideBuy, res.Trades[2].Side)
	assert.Equal(t, 2, res.Trades[2].Index)
	assert.Equal(t, 5, calls)
	assert.InDelta(t, 200, res.FinalValue(), 1e-9)

	executed := ExecutedSignals(res)
	assert.Equal(t, signal.EnterLong, executed[0])
	assert.Equal(t, signal.EnterLong, executed[2])
	assert.Zero(t, executed.Count(signal.ExitLong), "same-candle exit is only in the trade log")
}

func TestEngine_Run_Errors(t *testing.T) {
	_, err := NewEngine(1000).Run(nil, scripted(0, nil))
	assert.ErrorIs(t, err, ErrNoCandles)

	_, err = NewEngine(0).Run(candlesFromCloses(1), scripted(0, nil))
	assert.ErrorIs(t, err, ErrInvalidCapital)

	_, err = NewEngine(1000).Run(candlesFromCloses(1), Strategy{Label: "empty"})
	assert.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestEngine_Run_ZeroPriceSkipsEntry(t *testing.T) {
	candles := candlesFromCloses(0, 10)
	ss := signal.Series{signal.EnterLong, signal.None}

	res, err := NewEngine(1000).Run(candles, scripted(0, ss))
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Equal(t, 1000.0, res.FinalValue())
}

func TestEngine_RunPartial(t *testing.T) {
	candles := candlesFromCloses(100, 100, 200, 200)
	ps := PartialStrategy{
		Label:      "partial",
		Allocation: risk.Allocation{BuyFraction: 0.5, SellFraction: 0.5},
		Build: func([]models.Candle) signal.Series {
			return signal.Series{signal.EnterLong, signal.EnterLong, signal.ExitLong, signal.ExitLong}
		},
	}

	e := NewEngine(1000)
	res, err := e.RunPartial(candles, ps)
	require.NoError(t, err)

	// 500 -> 5 units, then 250 -> 2.5 units; sell 3.75 then 1.875 at 200
	require.Len(t, res.Trades, 4)
	assert.InDelta(t, 7.5, res.Trades[0].Quantity+res.Trades[1].Quantity, 1e-9)
	assert.InDelta(t, 3.75, res.Trades[2].Quantity, 1e-9)
	assert.InDelta(t, 1.875, res.Trades[3].Quantity, 1e-9)
	assert.InDelta(t, 250+7.5*200, res.Equity[2], 1e-9)
	assert.InDelta(t, res.Equity[2], res.Equity[3], 1e-9)
}

func TestEngine_RunPartial_InvalidAllocation(t *testing.T) {
	ps := PartialStrategy{
		Label:      "bad",
		Allocation: risk.Allocation{BuyFraction: 2, SellFraction: 1},
		Build:      func([]models.Candle) signal.Series { return nil },
	}

	_, err := NewEngine(1000).RunPartial(candlesFromCloses(1, 2), ps)
	assert.ErrorIs(t, err, risk.ErrInvalidFraction)
}

func TestSignalSeries(t *testing.T) {
	candles := candlesFromCloses(1, 2, 3, 4)
	ss := signal.Series{signal.ExitLong, signal.EnterLong, signal.EnterLong, signal.ExitLong}

	got, err := SignalSeries(candles, scripted(0, ss))
	require.NoError(t, err)
	assert.Equal(t, signal.Series{signal.None, signal.EnterLong, signal.None, signal.ExitLong}, got)
}
