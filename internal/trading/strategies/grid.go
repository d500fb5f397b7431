package strategies

import (
	"fmt"
	"sort"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/trading/backtest"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

// MatchPolicy chooses which open buy lot a triggered sell level releases.
type MatchPolicy string

const (
	// MatchLadder releases the lot of the lowest priced triggered buy level,
	// i.e. the first one found walking the ladder upwards.
	MatchLadder MatchPolicy = "ladder"
	// MatchFIFO releases the lot that was bought first in time.
	MatchFIFO MatchPolicy = "fifo"
)

// GridConfig describes a symmetric grid around the first close
type GridConfig struct {
	Capital  float64     `json:"capital"`
	Spacing  float64     `json:"spacing"` // fraction of the start price between levels
	Levels   int         `json:"levels"`  // levels on each side
	PerLevel float64     `json:"per_level"`
	Policy   MatchPolicy `json:"policy"`
}

func (c GridConfig) Validate() error {
	switch c.Policy {
	case MatchLadder, MatchFIFO:
	default:
		return fmt.Errorf("%w %q", ErrUnknownPolicy, c.Policy)
	}
	if c.Capital <= 0 {
		return fmt.Errorf("%w: got %.2f", backtest.ErrInvalidCapital, c.Capital)
	}
	if c.Spacing <= 0 || c.Levels <= 0 || c.PerLevel <= 0 {
		return invalid("grid spacing %.3f, levels %d, per level %.2f", c.Spacing, c.Levels, c.PerLevel)
	}
	return nil
}

type gridLevel struct {
	price     float64
	buy       bool
	triggered bool
	quantity  float64 // open lot of a triggered buy level
	boughtAt  int     // purchase sequence, for FIFO matching
}

func buildLadder(start float64, cfg GridConfig) []*gridLevel {
	ladder := make([]*gridLevel, 0, 2*cfg.Levels)
	for i := -cfg.Levels; i <= cfg.Levels; i++ {
		if i == 0 {
			continue
		}
		ladder = append(ladder, &gridLevel{
			price: start * (1 + float64(i)*cfg.Spacing),
			buy:   i < 0,
		})
	}
	sort.SliceStable(ladder, func(a, b int) bool { return ladder[a].price < ladder[b].price })
	return ladder
}

func (c GridConfig) openLot(ladder []*gridLevel) *gridLevel {
	var pick *gridLevel
	for _, l := range ladder {
		if !l.buy || !l.triggered || l.quantity <= 0 {
			continue
		}
		if c.Policy == MatchLadder {
			return l
		}
		if pick == nil || l.boughtAt < pick.boughtAt {
			pick = l
		}
	}
	return pick
}

// Grid runs the grid strategy. The ladder is fixed at the first close. Each
// candle walks the ladder from the lowest level up: an armed buy level at or
// above the close buys PerLevel worth when cash allows; an untriggered sell
// level at or below the close releases one open lot, chosen by the match
// policy, and stays triggered for the rest of the run. A sold lot re-arms
// its buy level.
func Grid(candles []models.Candle, cfg GridConfig) (*models.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, backtest.ErrNoCandles
	}

	label := fmt.Sprintf("Grid Trading (%.0f%%, %d levels)", cfg.Spacing*100, 2*cfg.Levels)
	res := backtest.NewResult(label, cfg.Capital, candles)
	ladder := buildLadder(candles[0].Close, cfg)

	cash, quantity := cfg.Capital, 0.0
	seq := 0

	for i, c := range candles {
		price := c.Close

		for _, l := range ladder {
			if price <= 0 {
				break
			}

			switch {
			case l.buy && !l.triggered && price <= l.price:
				if cash < cfg.PerLevel {
					continue
				}
				q := cfg.PerLevel / price
				cash -= cfg.PerLevel
				quantity += q
				seq++
				l.triggered, l.quantity, l.boughtAt = true, q, seq
				res.Trades = append(res.Trades, gridTrade(c, i, models.SideBuy, q))

			case !l.buy && !l.triggered && price >= l.price:
				lot := cfg.openLot(ladder)
				if lot == nil {
					continue
				}
				q := lot.quantity
				cash += q * price
				quantity -= q
				l.triggered = true
				lot.triggered, lot.quantity = false, 0
				res.Trades = append(res.Trades, gridTrade(c, i, models.SideSell, q))
			}
		}

		res.Equity[i] = cash + quantity*price
	}

	return res, nil
}

func gridTrade(c models.Candle, i int, side models.Side, q float64) models.Trade {
	return models.Trade{
		Time:     c.OpenTime,
		Index:    i,
		Side:     side,
		Price:    c.Close,
		Quantity: q,
		Cash:     q * c.Close,
	}
}
