package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/api/binance"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/bot"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/config"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/logging"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/metrics"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/notification"
	httpClient "github.com/mykytavoitishyn/stochastic-risk-assessment/internal/platform/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)
	logger := logging.Component("pricebot")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := binance.NewClient(binance.ClientOptions{
		BaseURL:        cfg.Binance.BaseURL,
		RequestTimeout: cfg.Binance.RequestTimeout,
		RequestsPerSec: cfg.Binance.RequestsPerSec,
		MaxRetries:     cfg.Binance.MaxRetries,
	})

	notifier, err := notification.FromConfig(cfg.Notify, httpClient.NewClient(httpClient.ClientOptions{
		Timeout: cfg.Binance.RequestTimeout,
	}))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up notifications")
	}

	opts := bot.Options{Metrics: metrics.New(), Health: metrics.NewHealth(3 * cfg.Bot.PriceInterval)}
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, opts.Metrics, opts.Health)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Stop(shutdownCtx)
		}()
	}

	b, err := bot.NewPriceBot(bot.PriceBotConfig{
		Symbol:   cfg.Binance.Symbol,
		Interval: cfg.Bot.PriceInterval,
	}, client, notifier, opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create bot")
	}

	logger.Info().
		Str("symbol", cfg.Binance.Symbol).
		Str("api", client.BaseURL()).
		Dur("interval", cfg.Bot.PriceInterval).
		Msg("Starting price bot")

	if err := b.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Bot exited")
	}
}
