package strategies

import (
	"fmt"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/calculate"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/signal"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/trading/backtest"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/trading/risk"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

// BuyAndHold buys at the first close and never sells.
func BuyAndHold() backtest.Strategy {
	return backtest.Strategy{
		Label: "Buy and Hold",
		Build: func([]models.Candle) backtest.Rule {
			return func(i int, pos backtest.Position) signal.Signal {
				if i == 0 && !pos.Long {
					return signal.EnterLong
				}
				return signal.None
			}
		},
	}
}

// RSI buys when RSI crosses below oversold and sells when it crosses above overbought.
func RSI(period int, oversold, overbought float64) (backtest.Strategy, error) {
	if period <= 0 {
		return backtest.Strategy{}, invalid("rsi period %d", period)
	}
	if oversold <= 0 || overbought >= 100 || oversold >= overbought {
		return backtest.Strategy{}, invalid("rsi thresholds %.1f/%.1f", oversold, overbought)
	}

	return backtest.Strategy{
		Label:  fmt.Sprintf("RSI (%d) [%.0f/%.0f]", period, oversold, overbought),
		Warmup: period + 1,
		Build: func(candles []models.Candle) backtest.Rule {
			rsi := calculate.RSI(calculate.Closes(candles), period)
			return backtest.FromSeries(signal.Merge(
				signal.CrossBelow(rsi, oversold),
				signal.CrossAbove(rsi, overbought),
			))
		},
	}, nil
}

// MACrossover goes all in on a golden cross and exits on a death cross.
func MACrossover(short, long int) (backtest.Strategy, error) {
	if short <= 0 || long <= short {
		return backtest.Strategy{}, invalid("moving average windows %d/%d", short, long)
	}

	return backtest.Strategy{
		Label:  fmt.Sprintf("MA Crossover (%d/%d)", short, long),
		Warmup: long,
		Build: func(candles []models.Candle) backtest.Rule {
			closes := calculate.Closes(candles)
			fast := calculate.RollingMean(closes, short)
			slow := calculate.RollingMean(closes, long)
			return backtest.FromSeries(signal.Merge(
				signal.CrossAboveSeries(fast, slow),
				signal.CrossBelowSeries(fast, slow),
			))
		},
	}, nil
}

// MATrend is the partial-allocation crossover: a golden cross buys a fraction
// of the cash while the close is above the trend average, a death cross
// sells a fraction of the holdings.
func MATrend(short, long, trend int, alloc risk.Allocation) (backtest.PartialStrategy, error) {
	if short <= 0 || long <= short || trend <= 0 {
		return backtest.PartialStrategy{}, invalid("moving average windows %d/%d/%d", short, long, trend)
	}
	if err := alloc.Validate(); err != nil {
		return backtest.PartialStrategy{}, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	warmup := long
	if trend > warmup {
		warmup = trend
	}

	return backtest.PartialStrategy{
		Label:      fmt.Sprintf("MA Trend (%d/%d/%d)", short, long, trend),
		Warmup:     warmup,
		Allocation: alloc,
		Build: func(candles []models.Candle) signal.Series {
			closes := calculate.Closes(candles)
			fast := calculate.RollingMean(closes, short)
			slow := calculate.RollingMean(closes, long)
			trendMA := calculate.RollingMean(closes, trend)

			golden := signal.CrossAboveSeries(fast, slow)
			above := signal.AboveSeries(calculate.Series(closes), trendMA)

			enter := make([]bool, len(golden))
			for i := range golden {
				enter[i] = golden[i] && above[i]
			}
			return signal.Merge(enter, signal.CrossBelowSeries(fast, slow))
		},
	}, nil
}

// MeanReversion buys when the close drops through MA*(1-buy) and sells when
// it rises through MA*(1+sell).
func MeanReversion(period int, buyThreshold, sellThreshold float64) (backtest.Strategy, error) {
	if period <= 0 {
		return backtest.Strategy{}, invalid("ma period %d", period)
	}
	if buyThreshold < 0 || buyThreshold >= 1 || sellThreshold < 0 {
		return backtest.Strategy{}, invalid("band thresholds %.3f/%.3f", buyThreshold, sellThreshold)
	}

	return backtest.Strategy{
		Label:  fmt.Sprintf("Mean Reversion (MA%d, ±%.0f%%)", period, buyThreshold*100),
		Warmup: period,
		Build: func(candles []models.Candle) backtest.Rule {
			closes := calculate.Series(calculate.Closes(candles))
			ma := calculate.RollingMean(closes, period)
			return backtest.FromSeries(signal.Merge(
				signal.CrossBelowSeries(closes, ma.Scale(1-buyThreshold)),
				signal.CrossAboveSeries(closes, ma.Scale(1+sellThreshold)),
			))
		},
	}, nil
}

// Momentum holds while the rate of change over lookback is strong: it enters
// above threshold and exits once momentum turns negative.
func Momentum(lookback int, threshold float64) (backtest.Strategy, error) {
	if lookback <= 0 {
		return backtest.Strategy{}, invalid("momentum lookback %d", lookback)
	}
	if threshold < 0 {
		return backtest.Strategy{}, invalid("momentum threshold %.3f", threshold)
	}

	return backtest.Strategy{
		Label:  fmt.Sprintf("Momentum (%dd, >%.0f%%)", lookback, threshold*100),
		Warmup: lookback,
		Build: func(candles []models.Candle) backtest.Rule {
			mom := calculate.Momentum(calculate.Closes(candles), lookback)
			return backtest.FromSeries(signal.Merge(
				signal.Above(mom, threshold),
				signal.Below(mom, 0),
			))
		},
	}, nil
}

// Breakout buys on the candle where the close first clears the previous
// candle's resistance (highest high over lookback) by threshold, and sells
// where it first drops under the previous support (lowest low) by threshold.
// The breakout condition itself is edge-triggered, so a close already past the
// level on the first defined candle counts as a breakout.
func Breakout(lookback int, threshold float64) (backtest.Strategy, error) {
	if lookback <= 0 {
		return backtest.Strategy{}, invalid("breakout lookback %d", lookback)
	}
	if threshold < 0 || threshold >= 1 {
		return backtest.Strategy{}, invalid("breakout threshold %.3f", threshold)
	}

	return backtest.Strategy{
		Label:  fmt.Sprintf("Breakout (%dd, %.0f%%)", lookback, threshold*100),
		Warmup: lookback,
		Build: func(candles []models.Candle) backtest.Rule {
			closes := calculate.Series(calculate.Closes(candles))
			resistance := calculate.RollingMax(calculate.Highs(candles), lookback).Shift(1)
			support := calculate.RollingMin(calculate.Lows(candles), lookback).Shift(1)
			return backtest.FromSeries(signal.Merge(
				signal.Edge(signal.AboveSeries(closes, resistance.Scale(1+threshold))),
				signal.Edge(signal.BelowSeries(closes, support.Scale(1-threshold))),
			))
		},
	}, nil
}

// VolumeSpike buys a bullish candle whose volume exceeds multiple times its
// average and exits after exitBars candles or once volume falls below average.
// An exit candle may immediately re-enter on a fresh spike.
func VolumeSpike(period int, multiple float64, exitBars int) (backtest.Strategy, error) {
	if period <= 0 || exitBars <= 0 {
		return backtest.Strategy{}, invalid("volume period %d, exit bars %d", period, exitBars)
	}
	if multiple <= 0 {
		return backtest.Strategy{}, invalid("volume multiple %.2f", multiple)
	}

	return backtest.Strategy{
		Label:  fmt.Sprintf("Volume Spike (%.1fx, %dd hold)", multiple, exitBars),
		Warmup: period - 1,
		Build: func(candles []models.Candle) backtest.Rule {
			volumes := calculate.Volumes(candles)
			spike := signal.VolumeSpike(candles, calculate.RollingMean(volumes, period), multiple)
			ratio := calculate.VolumeRatio(volumes, period)

			return func(i int, pos backtest.Position) signal.Signal {
				if pos.Long {
					r, ok := ratio.At(i)
					if i-pos.EntryIndex >= exitBars || (ok && r < 1) {
						return signal.ExitLong
					}
					return signal.None
				}
				if i < len(spike) && spike[i] {
					return signal.EnterLong
				}
				return signal.None
			}
		},
	}, nil
}
