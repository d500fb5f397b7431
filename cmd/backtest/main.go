package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/api/binance"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/config"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/export"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/logging"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/trading/backtest"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/trading/strategies"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var (
		dataPath   = flag.String("data", cfg.Backtest.DataPath, "candle CSV to replay; fetched from Binance when empty")
		symbol     = flag.String("symbol", cfg.Binance.Symbol, "symbol to fetch when no CSV is given")
		interval   = flag.String("interval", cfg.Binance.Interval, "kline interval of the data")
		days       = flag.Int("days", 365, "days of history to fetch when no CSV is given")
		capital    = flag.Float64("capital", cfg.Backtest.InitialCapital, "initial capital per strategy")
		riskFree   = flag.Float64("risk-free", cfg.Backtest.RiskFreeRate, "annual risk-free rate for Sharpe and Sortino")
		names      = flag.String("strategies", strings.Join(cfg.Backtest.Strategies, ","), "comma separated strategies, empty runs all of: "+strings.Join(strategies.Names(), ","))
		outDir     = flag.String("out", cfg.Backtest.OutputDir, "directory for CSV, SVG and JSON output; empty disables")
		dcaFreq    = flag.String("dca-frequency", string(strategies.Weekly), "DCA frequency: daily, weekly, biweekly or monthly")
		gridPolicy = flag.String("grid-policy", string(strategies.MatchLadder), "grid sell matching: ladder or fifo")
		verbose    = flag.Bool("v", false, "print the full report of every strategy")
	)
	flag.Parse()

	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)
	logger := logging.Component("backtest")

	cfg.Binance.Symbol, cfg.Binance.Interval = *symbol, *interval
	cfg.Backtest.InitialCapital = *capital
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	candles, err := loadCandles(ctx, cfg, *dataPath, *days)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load candles")
	}
	logger.Info().
		Int("candles", len(candles)).
		Time("from", candles[0].OpenTime).
		Time("to", candles[len(candles)-1].OpenTime).
		Msg("Candles loaded")

	params := strategies.DefaultParams()
	params.InitialCapital = *capital
	params.DCAFrequency = strategies.Frequency(*dcaFreq)
	params.GridPolicy = strategies.MatchPolicy(*gridPolicy)

	results, err := strategies.RunAll(candles, params, splitList(*names)...)
	if err != nil {
		logger.Fatal().Err(err).Msg("Backtest failed")
	}

	ppy, err := models.PeriodsPerYear(cfg.Binance.Interval)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid interval")
	}

	all := make([]models.Metrics, len(results))
	for i, res := range results {
		all[i] = backtest.Evaluate(res, ppy, *riskFree)
		if *verbose {
			fmt.Print(backtest.FormatMetrics(all[i]))
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("  STRATEGY COMPARISON")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Print(backtest.FormatComparison(all))

	if *outDir != "" {
		if err := writeOutputs(*outDir, results, all); err != nil {
			logger.Fatal().Err(err).Msg("Failed to write results")
		}
		logger.Info().Str("dir", *outDir).Msg("Results written")
	}
}

func loadCandles(ctx context.Context, cfg *config.Config, path string, days int) ([]models.Candle, error) {
	if path != "" {
		return export.ReadCandlesFile(path)
	}

	client := binance.NewClient(binance.ClientOptions{
		BaseURL:        cfg.Binance.BaseURL,
		RequestTimeout: cfg.Binance.RequestTimeout,
		RequestsPerSec: cfg.Binance.RequestsPerSec,
		MaxRetries:     cfg.Binance.MaxRetries,
	})
	end := time.Now().UTC()
	return client.History(ctx, binance.KlineQuery{
		Symbol:    cfg.Binance.Symbol,
		Interval:  cfg.Binance.Interval,
		StartTime: end.AddDate(0, 0, -days),
		EndTime:   end,
	})
}

func writeOutputs(dir string, results []*models.Result, all []models.Metrics) error {
	for _, res := range results {
		base := filepath.Join(dir, slug(res.Strategy))
		if err := export.WriteFile(base+"_equity.csv", func(w io.Writer) error { return export.WriteEquity(w, res) }); err != nil {
			return err
		}
		if err := export.WriteFile(base+"_trades.csv", func(w io.Writer) error { return export.WriteTrades(w, res.Trades) }); err != nil {
			return err
		}
		chart := export.EquityChart(res, export.ChartOptions{Benchmark: true})
		if err := export.WriteFile(base+".svg", func(w io.Writer) error {
			_, err := w.Write(chart)
			return err
		}); err != nil {
			return err
		}
	}

	return export.WriteFile(filepath.Join(dir, "metrics.json"), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	})
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// slug turns a strategy label into a file name, e.g. "MA 50/200" into "ma_50_200".
func slug(label string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && sb.Len() > 0:
			sb.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(sb.String(), "_")
}
