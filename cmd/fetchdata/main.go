package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/api/binance"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/config"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/export"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/logging"
)

const dateLayout = "2006-01-02"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var (
		symbol   = flag.String("symbol", cfg.Binance.Symbol, "symbol to download")
		interval = flag.String("interval", cfg.Binance.Interval, "kline interval")
		from     = flag.String("from", "", "first day, YYYY-MM-DD (default one year ago)")
		to       = flag.String("to", "", "last day, YYYY-MM-DD (default now)")
		dir      = flag.String("dir", "data", "output directory")
	)
	flag.Parse()

	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)
	logger := logging.Component("fetchdata")

	cfg.Binance.Symbol, cfg.Binance.Interval = *symbol, *interval
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	end := time.Now().UTC()
	if *to != "" {
		if end, err = time.Parse(dateLayout, *to); err != nil {
			logger.Fatal().Err(err).Msg("Invalid -to date")
		}
	}
	start := end.AddDate(-1, 0, 0)
	if *from != "" {
		if start, err = time.Parse(dateLayout, *from); err != nil {
			logger.Fatal().Err(err).Msg("Invalid -from date")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := binance.NewClient(binance.ClientOptions{
		BaseURL:        cfg.Binance.BaseURL,
		RequestTimeout: cfg.Binance.RequestTimeout,
		RequestsPerSec: cfg.Binance.RequestsPerSec,
		MaxRetries:     cfg.Binance.MaxRetries,
	})

	candles, err := client.History(ctx, binance.KlineQuery{
		Symbol:    cfg.Binance.Symbol,
		Interval:  cfg.Binance.Interval,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to fetch klines")
	}

	name := fmt.Sprintf("%s_%s_%d_%d.csv", cfg.Binance.Symbol, cfg.Binance.Interval, start.UnixMilli(), end.UnixMilli())
	path := filepath.Join(*dir, name)
	if err := export.WriteFile(path, func(w io.Writer) error { return export.WriteCandles(w, candles) }); err != nil {
		logger.Fatal().Err(err).Msg("Failed to write candles")
	}

	logger.Info().Int("candles", len(candles)).Str("path", path).Msg("Candles saved")
}
