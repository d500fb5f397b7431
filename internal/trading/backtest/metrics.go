package backtest

import (
	"math"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

// Returns computes the period-over-period returns of an equity curve.
// The result has len(equity)-1 entries; a step from zero equity counts as 0.
func Returns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}

	returns := make([]float64, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		returns[i-1] = equity[i]/equity[i-1] - 1
	}
	return returns
}

// TotalReturn is last/first - 1 as a fraction.
func TotalReturn(equity []float64) float64 {
	if len(equity) == 0 || equity[0] <= 0 {
		return 0
	}
	return equity[len(equity)-1]/equity[0] - 1
}

// MaxDrawdown returns the deepest decline from a running peak as a
// non-positive fraction.
func MaxDrawdown(equity []float64) float64 {
	peak, worst := math.Inf(-1), 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (v - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

// AnnualizedReturn compounds the total return to a yearly rate using the
// number of points in the curve as the number of periods.
func AnnualizedReturn(equity []float64, periodsPerYear int) float64 {
	n := len(equity)
	if n == 0 || periodsPerYear <= 0 || equity[0] <= 0 {
		return 0
	}

	ratio := equity[n-1] / equity[0]
	if ratio <= 0 {
		return -1
	}
	return math.Pow(ratio, float64(periodsPerYear)/float64(n)) - 1
}

// AnnualizedVolatility is the sample standard deviation of returns scaled
// by sqrt(periodsPerYear).
func AnnualizedVolatility(equity []float64, periodsPerYear int) float64 {
	if periodsPerYear <= 0 {
		return 0
	}
	return stdDev(Returns(equity)) * math.Sqrt(float64(periodsPerYear))
}

// Sharpe is (annualized return - riskFree) / annualized volatility, 0 when
// volatility is 0.
func Sharpe(equity []float64, periodsPerYear int, riskFree float64) float64 {
	vol := AnnualizedVolatility(equity, periodsPerYear)
	if vol == 0 {
		return 0
	}
	return (AnnualizedReturn(equity, periodsPerYear) - riskFree) / vol
}

// Sortino divides the same excess return by the annualized deviation of the
// negative returns only. It is 0 when there is no measurable downside.
func Sortino(equity []float64, periodsPerYear int, riskFree float64) float64 {
	if periodsPerYear <= 0 {
		return 0
	}

	var negative []float64
	for _, r := range Returns(equity) {
		if r < 0 {
			negative = append(negative, r)
		}
	}

	downside := stdDev(negative) * math.Sqrt(float64(periodsPerYear))
	if downside == 0 {
		return 0
	}
	return (AnnualizedReturn(equity, periodsPerYear) - riskFree) / downside
}

// Calmar is annualized return over the absolute max drawdown, 0 without drawdown.
func Calmar(equity []float64, periodsPerYear int) float64 {
	mdd := math.Abs(MaxDrawdown(equity))
	if mdd == 0 {
		return 0
	}
	return AnnualizedReturn(equity, periodsPerYear) / mdd
}

// WinRate is the fraction of strictly positive returns.
func WinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

// ProfitFactor is gross gains over gross losses. Without losses it is +Inf
// when there are gains and 0 otherwise.
func ProfitFactor(returns []float64) float64 {
	var gains, losses float64
	for _, r := range returns {
		switch {
		case r > 0:
			gains += r
		case r < 0:
			losses -= r
		}
	}

	if losses == 0 {
		if gains > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return gains / losses
}

// Evaluate computes every metric for a result. Percent fields are scaled by 100.
func Evaluate(res *models.Result, periodsPerYear int, riskFree float64) models.Metrics {
	equity := res.Equity
	returns := Returns(equity)

	m := models.Metrics{
		Strategy:       res.Strategy,
		InitialCapital: res.InitialCapital,
		FinalValue:     res.FinalValue(),
		NumPeriods:     len(equity),
		NumTrades:      len(res.Trades),
	}
	if len(equity) == 0 {
		return m
	}

	m.TotalReturnPct = TotalReturn(equity) * 100
	if equity[0] > 0 {
		m.TotalReturnMultiple = equity[len(equity)-1] / equity[0]
	}
	m.AnnualizedReturnPct = AnnualizedReturn(equity, periodsPerYear) * 100
	m.AnnualizedVolatilityPct = AnnualizedVolatility(equity, periodsPerYear) * 100
	m.SharpeRatio = Sharpe(equity, periodsPerYear, riskFree)
	m.SortinoRatio = Sortino(equity, periodsPerYear, riskFree)
	m.CalmarRatio = Calmar(equity, periodsPerYear)
	m.MaxDrawdownPct = MaxDrawdown(equity) * 100
	m.WinRatePct = WinRate(returns) * 100
	m.ProfitFactor = ProfitFactor(returns)

	return m
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the sample standard deviation; fewer than two values give 0.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)-1))
}
