// Package strategies holds the concrete trading rules. Signal strategies are
// thin parameterizations of the backtest engine; DCA and grid trading run
// their own loops because they are not FLAT/LONG machines.
package strategies

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/trading/backtest"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/trading/risk"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

var (
	ErrInvalidParams    = errors.New("invalid strategy parameters")
	ErrUnknownStrategy  = errors.New("unknown strategy")
	ErrUnknownFrequency = errors.New("unknown DCA frequency")
	ErrUnknownPolicy    = errors.New("unknown grid match policy")
)

// Runner executes one configured strategy over a candle series.
type Runner func(candles []models.Candle) (*models.Result, error)

// Params carries the knobs of every strategy so any of them can be built by name.
type Params struct {
	InitialCapital float64 `json:"initial_capital"`

	RSIPeriod  int     `json:"rsi_period"`
	Oversold   float64 `json:"oversold"`
	Overbought float64 `json:"overbought"`

	ShortWindow  int     `json:"short_window"`
	LongWindow   int     `json:"long_window"`
	TrendWindow  int     `json:"trend_window"`
	BuyFraction  float64 `json:"buy_fraction"`
	SellFraction float64 `json:"sell_fraction"`

	MAPeriod      int     `json:"ma_period"`
	BuyThreshold  float64 `json:"buy_threshold"`
	SellThreshold float64 `json:"sell_threshold"`

	MomentumLookback  int     `json:"momentum_lookback"`
	MomentumThreshold float64 `json:"momentum_threshold"`

	BreakoutLookback  int     `json:"breakout_lookback"`
	BreakoutThreshold float64 `json:"breakout_threshold"`

	VolumePeriod   int     `json:"volume_period"`
	VolumeMultiple float64 `json:"volume_multiple"`
	ExitBars       int     `json:"exit_bars"`

	DCAAmount    float64   `json:"dca_amount"`
	DCAFrequency Frequency `json:"dca_frequency"`
	DCABudget    float64   `json:"dca_budget"` // 0 means unlimited

	GridSpacing  float64     `json:"grid_spacing"`
	GridLevels   int         `json:"grid_levels"`
	GridPerLevel float64     `json:"grid_per_level"`
	GridPolicy   MatchPolicy `json:"grid_policy"`
}

// DefaultParams returns the parameters the strategies are usually run with
// on daily BTC data.
func DefaultParams() Params {
	return Params{
		InitialCapital: backtest.DefaultInitialCapital,

		RSIPeriod:  14,
		Oversold:   30,
		Overbought: 70,

		ShortWindow:  50,
		LongWindow:   200,
		TrendWindow:  200,
		BuyFraction:  0.25,
		SellFraction: 0.5,

		MAPeriod:      20,
		BuyThreshold:  0.05,
		SellThreshold: 0.05,

		MomentumLookback:  10,
		MomentumThreshold: 0.05,

		BreakoutLookback:  20,
		BreakoutThreshold: 0.01,

		VolumePeriod:   20,
		VolumeMultiple: 2.0,
		ExitBars:       5,

		DCAAmount:    100,
		DCAFrequency: Weekly,

		GridSpacing:  0.05,
		GridLevels:   10,
		GridPerLevel: 1000,
		GridPolicy:   MatchLadder,
	}
}

type factory func(p Params) (Runner, error)

func signalRunner(p Params, build func(Params) (backtest.Strategy, error)) (Runner, error) {
	s, err := build(p)
	if err != nil {
		return nil, err
	}
	engine := backtest.NewEngine(p.InitialCapital)
	return func(candles []models.Candle) (*models.Result, error) {
		return engine.Run(candles, s)
	}, nil
}

var registry = map[string]factory{
	"buyandhold": func(p Params) (Runner, error) {
		return signalRunner(p, func(Params) (backtest.Strategy, error) { return BuyAndHold(), nil })
	},
	"dca": func(p Params) (Runner, error) {
		cfg := DCAConfig{Amount: p.DCAAmount, Frequency: p.DCAFrequency, Budget: p.DCABudget}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return func(candles []models.Candle) (*models.Result, error) { return DCA(candles, cfg) }, nil
	},
	"rsi": func(p Params) (Runner, error) {
		return signalRunner(p, func(p Params) (backtest.Strategy, error) {
			return RSI(p.RSIPeriod, p.Oversold, p.Overbought)
		})
	},
	"macrossover": func(p Params) (Runner, error) {
		return signalRunner(p, func(p Params) (backtest.Strategy, error) {
			return MACrossover(p.ShortWindow, p.LongWindow)
		})
	},
	"matrend": func(p Params) (Runner, error) {
		s, err := MATrend(p.ShortWindow, p.LongWindow, p.TrendWindow,
			risk.Allocation{BuyFraction: p.BuyFraction, SellFraction: p.SellFraction})
		if err != nil {
			return nil, err
		}
		engine := backtest.NewEngine(p.InitialCapital)
		return func(candles []models.Candle) (*models.Result, error) {
			return engine.RunPartial(candles, s)
		}, nil
	},
	"meanreversion": func(p Params) (Runner, error) {
		return signalRunner(p, func(p Params) (backtest.Strategy, error) {
			return MeanReversion(p.MAPeriod, p.BuyThreshold, p.SellThreshold)
		})
	},
	"volume": func(p Params) (Runner, error) {
		return signalRunner(p, func(p Params) (backtest.Strategy, error) {
			return VolumeSpike(p.VolumePeriod, p.VolumeMultiple, p.ExitBars)
		})
	},
	"grid": func(p Params) (Runner, error) {
		cfg := GridConfig{
			Capital:  p.InitialCapital,
			Spacing:  p.GridSpacing,
			Levels:   p.GridLevels,
			PerLevel: p.GridPerLevel,
			Policy:   p.GridPolicy,
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return func(candles []models.Candle) (*models.Result, error) { return Grid(candles, cfg) }, nil
	},
	"momentum": func(p Params) (Runner, error) {
		return signalRunner(p, func(p Params) (backtest.Strategy, error) {
			return Momentum(p.MomentumLookback, p.MomentumThreshold)
		})
	},
	"breakout": func(p Params) (Runner, error) {
		return signalRunner(p, func(p Params) (backtest.Strategy, error) {
			return Breakout(p.BreakoutLookback, p.BreakoutThreshold)
		})
	},
}

// order is the comparison order used by RunAll.
var order = []string{
	"buyandhold", "dca", "rsi", "macrossover", "matrend",
	"meanreversion", "volume", "grid", "momentum", "breakout",
}

// Names returns every registered strategy name in comparison order.
func Names() []string {
	out := make([]string, len(order))
	copy(out, order)
	return out
}

// ByName builds the named strategy from p. Invalid parameters fail here,
// before any candle is processed.
func ByName(name string, p Params) (Runner, error) {
	f, ok := registry[name]
	if !ok {
		known := Names()
		sort.Strings(known)
		return nil, fmt.Errorf("%w %q (known: %v)", ErrUnknownStrategy, name, known)
	}
	r, err := f(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return r, nil
}

// RunAll runs the named strategies, or all of them when names is empty,
// over the same candles and returns the results in the same order.
func RunAll(candles []models.Candle, p Params, names ...string) ([]*models.Result, error) {
	if len(names) == 0 {
		names = Names()
	}

	runners := make([]Runner, len(names))
	for i, name := range names {
		r, err := ByName(name, p)
		if err != nil {
			return nil, err
		}
		runners[i] = r
	}

	results := make([]*models.Result, 0, len(names))
	for i, run := range runners {
		res, err := run(candles)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", names[i], err)
		}
		results = append(results, res)
	}
	return results, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}
