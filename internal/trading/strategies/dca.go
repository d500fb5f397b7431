package strategies

import (
	"fmt"
	"time"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/trading/backtest"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

// Frequency is how often DCA buys
type Frequency string

const (
	Daily    Frequency = "daily"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
)

var frequencyDays = map[Frequency]int{
	Daily:    1,
	Weekly:   7,
	Biweekly: 14,
	Monthly:  30,
}

// Interval returns the calendar distance between two purchases.
func (f Frequency) Interval() (time.Duration, error) {
	days, ok := frequencyDays[f]
	if !ok {
		return 0, fmt.Errorf("%w %q: must be one of daily, weekly, biweekly, monthly", ErrUnknownFrequency, f)
	}
	return time.Duration(days) * 24 * time.Hour, nil
}

// DCAConfig describes a dollar cost averaging plan
type DCAConfig struct {
	Amount    float64   `json:"amount"`
	Frequency Frequency `json:"frequency"`
	Budget    float64   `json:"budget"` // total cap, 0 means unlimited
}

func (c DCAConfig) Validate() error {
	if _, err := c.Frequency.Interval(); err != nil {
		return err
	}
	if c.Amount <= 0 {
		return invalid("dca amount %.2f", c.Amount)
	}
	if c.Budget < 0 {
		return invalid("dca budget %.2f", c.Budget)
	}
	return nil
}

// Extras keys written by DCA.
const (
	ExtraTotalInvested   = "total_invested"
	ExtraAvgPrice        = "avg_purchase_price"
	ExtraQuantity        = "quantity"
	ExtraPurchases       = "num_purchases"
	ExtraAmountPerPeriod = "investment_per_period"
)

// DCA invests a fixed amount on the first candle and then whenever at least
// one interval of calendar time has passed since the previous purchase. Once
// the next purchase would exceed the budget no further purchases are made.
// The equity curve is the market value of the accumulated holdings and the
// result's initial capital is the total invested.
func DCA(candles []models.Candle, cfg DCAConfig) (*models.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, backtest.ErrNoCandles
	}
	interval, _ := cfg.Frequency.Interval()

	res := backtest.NewResult(fmt.Sprintf("DCA (%s)", cfg.Frequency), 0, candles)

	var (
		quantity, invested float64
		purchases          int
		last               time.Time
		bought, exhausted  bool
	)

	for i, c := range candles {
		due := !bought || c.OpenTime.Sub(last) >= interval
		if due && !exhausted && c.Close > 0 {
			if cfg.Budget > 0 && invested+cfg.Amount > cfg.Budget {
				exhausted = true
			} else {
				q := cfg.Amount / c.Close
				quantity += q
				invested += cfg.Amount
				purchases++
				last, bought = c.OpenTime, true

				res.Trades = append(res.Trades, models.Trade{
					Time:     c.OpenTime,
					Index:    i,
					Side:     models.SideBuy,
					Price:    c.Close,
					Quantity: q,
					Cash:     cfg.Amount,
				})
			}
		}

		res.Equity[i] = quantity * c.Close
	}

	avg := 0.0
	if quantity > 0 {
		avg = invested / quantity
	}

	res.InitialCapital = invested
	res.Extras = map[string]float64{
		ExtraTotalInvested:   invested,
		ExtraAvgPrice:        avg,
		ExtraQuantity:        quantity,
		ExtraPurchases:       float64(purchases),
		ExtraAmountPerPeriod: cfg.Amount,
	}
	return res, nil
}
