package strategies

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/signal"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/trading/backtest"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/trading/risk"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func flatCandles(closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			OpenTime: day0.AddDate(0, 0, i),
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Volume:   100,
		}
	}
	return out
}

func constant(n int, price float64) []models.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return flatCandles(closes...)
}

func smallParams() Params {
	p := DefaultParams()
	p.RSIPeriod = 5
	p.ShortWindow, p.LongWindow, p.TrendWindow = 3, 8, 10
	p.MAPeriod = 5
	p.MomentumLookback = 3
	p.BreakoutLookback = 5
	p.VolumePeriod = 5
	p.DCAFrequency = Daily
	p.DCABudget = 1000
	return p
}

func TestConstantPrice_PreservesCapital(t *testing.T) {
	candles := constant(60, 250)
	p := smallParams()

	results, err := RunAll(candles, p)
	require.NoError(t, err)
	require.Len(t, results, len(Names()))

	for _, res := range results {
		t.Run(res.Strategy, func(t *testing.T) {
			assert.InDelta(t, res.InitialCapital, res.FinalValue(), 1e-6)
			assert.Len(t, res.Equity, len(candles))
		})
	}
}

func TestMACrossover_Alternates(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/5)
	}
	s, err := MACrossover(3, 8)
	require.NoError(t, err)

	executed, err := backtest.SignalSeries(flatCandles(closes...), s)
	require.NoError(t, err)
	require.Greater(t, executed.Count(signal.EnterLong), 1)

	long := false
	for i, sig := range executed {
		switch sig {
		case signal.EnterLong:
			assert.False(t, long, "double entry at %d", i)
			long = true
		case signal.ExitLong:
			assert.True(t, long, "exit while flat at %d", i)
			long = false
		}
	}
}

func TestBreakout_MonotonicSeries(t *testing.T) {
	const lookback = 20

	for _, growth := range []float64{1.02, 1.03} {
		t.Run(fmt.Sprintf("growth %.2f", growth), func(t *testing.T) {
			closes := make([]float64, 60)
			price := 100.0
			for i := range closes {
				price *= growth
				closes[i] = price
			}

			s, err := Breakout(lookback, 0.01)
			require.NoError(t, err)

			res, err := backtest.NewEngine(10000).Run(flatCandles(closes...), s)
			require.NoError(t, err)

			require.Len(t, res.Trades, 1)
			assert.Equal(t, models.SideBuy, res.Trades[0].Side)
			assert.Equal(t, lookback, res.Trades[0].Index)

			executed := backtest.ExecutedSignals(res)
			assert.Equal(t, 1, executed.Count(signal.EnterLong))
			assert.Zero(t, executed.Count(signal.ExitLong))
		})
	}
}

func TestBreakout_BelowThresholdNeverEnters(t *testing.T) {
	closes := make([]float64, 60)
	price := 100.0
	for i := range closes {
		price *= 1.005
		closes[i] = price
	}

	s, err := Breakout(20, 0.01)
	require.NoError(t, err)

	res, err := backtest.NewEngine(10000).Run(flatCandles(closes...), s)
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
}

func TestBreakout_SupportBreakdownExits(t *testing.T) {
	closes := []float64{100, 100, 100, 103, 103, 103, 95, 90, 85}

	s, err := Breakout(3, 0.01)
	require.NoError(t, err)

	executed, err := backtest.SignalSeries(flatCandles(closes...), s)
	require.NoError(t, err)

	assert.Equal(t, signal.EnterLong, executed[3])
	assert.Equal(t, signal.ExitLong, executed[6])
	assert.Equal(t, 1, executed.Count(signal.EnterLong))
	assert.Equal(t, 1, executed.Count(signal.ExitLong))
}

func TestVolumeSpike_TimeExit(t *testing.T) {
	bars := []struct{ open, close, volume float64 }{
		{10, 10, 100}, {10, 10, 100}, {10, 10, 100},
		{10, 11, 700},
		{11, 11, 700},
		{11, 11, 700},
	}
	candles := make([]models.Candle, len(bars))
	for i, b := range bars {
		candles[i] = models.Candle{
			OpenTime: day0.AddDate(0, 0, i),
			Open:     b.open, High: b.close, Low: b.open, Close: b.close, Volume: b.volume,
		}
	}

	s, err := VolumeSpike(3, 2, 2)
	require.NoError(t, err)

	res, err := backtest.NewEngine(1100).Run(candles, s)
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, 3, res.Trades[0].Index)
	assert.Equal(t, 5, res.Trades[1].Index)
	assert.Equal(t, models.SideSell, res.Trades[1].Side)
	assert.InDelta(t, 1100, res.FinalValue(), 1e-9)
}

func TestMATrend_BuysOnlyAboveTrend(t *testing.T) {
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.2 + 8*math.Sin(float64(i)/4)
	}
	s, err := MATrend(3, 8, 30, risk.Allocation{BuyFraction: 0.5, SellFraction: 0.5})
	require.NoError(t, err)

	res, err := backtest.NewEngine(1000).RunPartial(flatCandles(closes...), s)
	require.NoError(t, err)
	require.NotEmpty(t, res.Trades)

	for _, tr := range res.Trades {
		assert.GreaterOrEqual(t, tr.Index, 30)
		if tr.Side == models.SideBuy {
			sum := 0.0
			for _, c := range closes[tr.Index-29 : tr.Index+1] {
				sum += c
			}
			assert.Greater(t, tr.Price, sum/30)
		}
	}
}

func TestConstructors_RejectInvalidParams(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"rsi period", func() error { _, err := RSI(0, 30, 70); return err }()},
		{"rsi thresholds", func() error { _, err := RSI(14, 70, 30); return err }()},
		{"ma windows", func() error { _, err := MACrossover(50, 20); return err }()},
		{"ma trend allocation", func() error {
			_, err := MATrend(3, 8, 10, risk.Allocation{BuyFraction: 0, SellFraction: 1})
			return err
		}()},
		{"mean reversion", func() error { _, err := MeanReversion(0, 0.05, 0.05); return err }()},
		{"momentum", func() error { _, err := Momentum(-1, 0.05); return err }()},
		{"breakout", func() error { _, err := Breakout(20, 1.5); return err }()},
		{"volume", func() error { _, err := VolumeSpike(20, 2, 0); return err }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, ErrInvalidParams)
		})
	}
}

func TestByName(t *testing.T) {
	_, err := ByName("martingale", DefaultParams())
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	p := DefaultParams()
	p.DCAFrequency = "hourly"
	_, err = ByName("dca", p)
	assert.ErrorIs(t, err, ErrUnknownFrequency)

	p = DefaultParams()
	p.GridPolicy = "random"
	_, err = ByName("grid", p)
	assert.ErrorIs(t, err, ErrUnknownPolicy)

	for _, name := range Names() {
		r, err := ByName(name, DefaultParams())
		require.NoError(t, err, name)
		assert.NotNil(t, r)
	}
}

func TestRunAll_Subset(t *testing.T) {
	results, err := RunAll(constant(10, 5), smallParams(), "buyandhold", "momentum")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Buy and Hold", results[0].Strategy)

	_, err = RunAll(nil, smallParams(), "rsi")
	assert.ErrorIs(t, err, backtest.ErrNoCandles)
}
