package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/signal"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/trading/risk"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

// DefaultInitialCapital is the starting cash when none is configured.
const DefaultInitialCapital = 10000.0

var (
	ErrNoCandles       = errors.New("no candles to backtest")
	ErrInvalidCapital  = errors.New("initial capital must be positive")
	ErrInvalidStrategy = errors.New("strategy has no signal builder")
)

// Position is the state a Rule sees when deciding on a candle.
// EntryIndex is -1 while flat.
type Position struct {
	Long       bool
	EntryIndex int
}

// Rule decides the signal for candle i given the current position.
type Rule func(i int, pos Position) signal.Signal

// Strategy parameterizes the FLAT/LONG loop. Build computes the indicators
// once over the whole series and returns the rule closing over them.
type Strategy struct {
	Label  string
	Warmup int // first index at which every indicator the rule reads is defined
	Build  func(candles []models.Candle) Rule
}

// PartialStrategy moves a fraction of cash or holdings on each signal
// instead of switching between fully flat and fully long.
type PartialStrategy struct {
	Label      string
	Warmup     int
	Allocation risk.Allocation
	Build      func(candles []models.Candle) signal.Series
}

// FromSeries adapts a precomputed signal series into a Rule.
func FromSeries(ss signal.Series) Rule {
	return func(i int, pos Position) signal.Signal {
		if i < 0 || i >= len(ss) {
			return signal.None
		}
		switch s := ss[i]; {
		case s == signal.EnterLong && !pos.Long, s == signal.ExitLong && pos.Long:
			return s
		}
		return signal.None
	}
}

// Engine runs strategies over a candle series
type Engine struct {
	initialValue float64
}

// NewEngine creates a new backtesting engine
func NewEngine(initialCapital float64) *Engine {
	return &Engine{initialValue: initialCapital}
}

// NewResult allocates a result aligned with candles.
func NewResult(label string, initialCapital float64, candles []models.Candle) *models.Result {
	res := &models.Result{
		RunID:          uuid.NewString(),
		Strategy:       label,
		InitialCapital: initialCapital,
		Equity:         make([]float64, len(candles)),
		Prices:         make([]float64, len(candles)),
		Timestamps:     make([]time.Time, len(candles)),
		Trades:         []models.Trade{},
	}
	for i, c := range candles {
		res.Prices[i] = c.Close
		res.Timestamps[i] = c.OpenTime
	}
	return res
}

func (e *Engine) check(candles []models.Candle) error {
	if len(candles) == 0 {
		return ErrNoCandles
	}
	if e.initialValue <= 0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidCapital, e.initialValue)
	}
	return nil
}

// Run executes the FLAT/LONG state machine. From the warm-up index on, an
// entry signal while flat converts all cash at the close and an exit signal
// while long converts all holdings back. After an exit the same candle is
// evaluated once more while flat. Equity before the warm-up index stays at
// the initial capital.
func (e *Engine) Run(candles []models.Candle, s Strategy) (*models.Result, error) {
	if err := e.check(candles); err != nil {
		return nil, err
	}
	if s.Build == nil {
		return nil, fmt.Errorf("%s: %w", s.Label, ErrInvalidStrategy)
	}

	res := NewResult(s.Label, e.initialValue, candles)
	rule := s.Build(candles)

	start := s.Warmup
	if start < 0 {
		start = 0
	}

	cash, quantity := e.initialValue, 0.0
	pos := Position{EntryIndex: -1}

	for i := start; i < len(candles); i++ {
		c := candles[i]
		price := c.Close

		sig := rule(i, pos)
		if pos.Long && sig == signal.ExitLong {
			fill := risk.AllIn.SizeSell(quantity, price)
			cash += fill.Cash
			quantity -= fill.Quantity
			res.Trades = append(res.Trades, newTrade(c, i, models.SideSell, fill))
			pos = Position{EntryIndex: -1}
			sig = rule(i, pos)
		}

		if !pos.Long && sig == signal.EnterLong {
			if fill := risk.AllIn.SizeBuy(cash, price); fill.Quantity > 0 {
				cash -= fill.Cash
				quantity += fill.Quantity
				res.Trades = append(res.Trades, newTrade(c, i, models.SideBuy, fill))
				pos = Position{Long: true, EntryIndex: i}
			}
		}

		res.Equity[i] = cash + quantity*price
	}

	backfill(res.Equity, start, e.initialValue)
	return res, nil
}

// RunPartial executes a partial-allocation strategy. Buys and sells are
// sized by the allocation and never require the account to be flat or long.
func (e *Engine) RunPartial(candles []models.Candle, s PartialStrategy) (*models.Result, error) {
	if err := e.check(candles); err != nil {
		return nil, err
	}
	if s.Build == nil {
		return nil, fmt.Errorf("%s: %w", s.Label, ErrInvalidStrategy)
	}
	if err := s.Allocation.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Label, err)
	}

	res := NewResult(s.Label, e.initialValue, candles)
	signals := s.Build(candles)

	start := s.Warmup
	if start < 0 {
		start = 0
	}

	cash, quantity := e.initialValue, 0.0
	for i := start; i < len(candles); i++ {
		c := candles[i]
		price := c.Close

		var sig signal.Signal
		if i < len(signals) {
			sig = signals[i]
		}

		switch sig {
		case signal.EnterLong:
			if fill := s.Allocation.SizeBuy(cash, price); fill.Quantity > 0 {
				cash -= fill.Cash
				quantity += fill.Quantity
				res.Trades = append(res.Trades, newTrade(c, i, models.SideBuy, fill))
			}
		case signal.ExitLong:
			if fill := s.Allocation.SizeSell(quantity, price); fill.Quantity > 0 {
				cash += fill.Cash
				quantity -= fill.Quantity
				res.Trades = append(res.Trades, newTrade(c, i, models.SideSell, fill))
			}
		}

		res.Equity[i] = cash + quantity*price
	}

	backfill(res.Equity, start, e.initialValue)
	return res, nil
}

// ExecutedSignals rebuilds the signal series that was actually acted upon
// from a result's trade log. The series holds one signal per candle, so a
// candle that exits and re-enters reads as EnterLong; its Sell is only
// visible in res.Trades.
func ExecutedSignals(res *models.Result) signal.Series {
	out := make(signal.Series, len(res.Equity))
	for _, t := range res.Trades {
		if t.Index < 0 || t.Index >= len(out) {
			continue
		}
		switch t.Side {
		case models.SideBuy:
			out[t.Index] = signal.EnterLong
		case models.SideSell:
			out[t.Index] = signal.ExitLong
		}
	}
	return out
}

// SignalSeries replays the state machine and returns the signals it acted on.
func SignalSeries(candles []models.Candle, s Strategy) (signal.Series, error) {
	res, err := NewEngine(DefaultInitialCapital).Run(candles, s)
	if err != nil {
		return nil, err
	}
	return ExecutedSignals(res), nil
}

func newTrade(c models.Candle, i int, side models.Side, fill risk.PositionSizingResult) models.Trade {
	return models.Trade{
		Time:     c.OpenTime,
		Index:    i,
		Side:     side,
		Price:    c.Close,
		Quantity: fill.Quantity,
		Cash:     fill.Cash,
	}
}

func backfill(equity []float64, until int, value float64) {
	for i := 0; i < until && i < len(equity); i++ {
		equity[i] = value
	}
}
