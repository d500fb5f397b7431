package models

import (
	"time"
)

// Candle represents a single OHLCV candle
type Candle struct {
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open_price"`
	High      float64   `json:"high_price"`
	Low       float64   `json:"low_price"`
	Close     float64   `json:"close_price"`
	Volume    float64   `json:"volume"`
	CloseTime time.Time `json:"close_time,omitempty"`
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}

// Side is the direction of a trade
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is one executed fill. Trades are appended and never modified.
type Trade struct {
	Time     time.Time `json:"time"`
	Index    int       `json:"index"`
	Side     Side      `json:"side"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	Cash     float64   `json:"cash"` // cash paid for a buy, received for a sell
}

// Result is the record every strategy run produces
type Result struct {
	RunID          string             `json:"run_id"`
	Strategy       string             `json:"strategy"`
	InitialCapital float64            `json:"initial_capital"`
	Equity         []float64          `json:"equity"`
	Prices         []float64          `json:"prices"`
	Timestamps     []time.Time        `json:"timestamps"`
	Trades         []Trade            `json:"trades,omitempty"`
	Extras         map[string]float64 `json:"extras,omitempty"` // strategy specific figures, e.g. total_invested
}

// FinalValue returns the last equity value, or the initial capital for an empty curve.
func (r *Result) FinalValue() float64 {
	if len(r.Equity) == 0 {
		return r.InitialCapital
	}
	return r.Equity[len(r.Equity)-1]
}

// Metrics holds the evaluation of one equity curve.
// Fields ending in Pct are percentages, the ratios are plain numbers.
type Metrics struct {
	Strategy                string  `json:"strategy"`
	InitialCapital          float64 `json:"initial_capital"`
	FinalValue              float64 `json:"final_value"`
	TotalReturnPct          float64 `json:"total_return_pct"`
	TotalReturnMultiple     float64 `json:"total_return_multiple"`
	AnnualizedReturnPct     float64 `json:"annualized_return_pct"`
	AnnualizedVolatilityPct float64 `json:"annualized_volatility_pct"`
	SharpeRatio             float64 `json:"sharpe_ratio"`
	SortinoRatio            float64 `json:"sortino_ratio"`
	CalmarRatio             float64 `json:"calmar_ratio"`
	MaxDrawdownPct          float64 `json:"max_drawdown_pct"`
	WinRatePct              float64 `json:"win_rate_pct"`
	ProfitFactor            float64 `json:"profit_factor"`
	NumPeriods              int     `json:"num_periods"`
	NumTrades               int     `json:"num_trades"`
}
