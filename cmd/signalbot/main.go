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
	logger := logging.Component("signalbot")

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

	var rule bot.Rule
	switch cfg.Bot.Rule {
	case "ma":
		rule = bot.MACrossRule{Short: cfg.Bot.ShortWindow, Long: cfg.Bot.LongWindow}
	default:
		rule = bot.RSIRule{Period: cfg.Bot.RSIPeriod, Oversold: cfg.Bot.Oversold, Overbought: cfg.Bot.Overbought}
	}

	opts := bot.Options{Metrics: metrics.New(), Health: metrics.NewHealth(3 * cfg.Bot.PollInterval)}
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, opts.Metrics, opts.Health)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Stop(shutdownCtx)
		}()
	}

	b, err := bot.NewSignalBot(bot.SignalBotConfig{
		Symbol:       cfg.Binance.Symbol,
		Interval:     cfg.Bot.KlineInterval,
		KlineLimit:   cfg.Bot.KlineLimit,
		PollInterval: cfg.Bot.PollInterval,
		SendStatus:   cfg.Bot.SendStatus,
	}, client, rule, notifier, opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create bot")
	}

	logger.Info().
		Str("symbol", cfg.Binance.Symbol).
		Str("interval", cfg.Bot.KlineInterval).
		Str("rule", rule.Name()).
		Dur("check_every", cfg.Bot.PollInterval).
		Msg("Starting signal bot")

	if err := b.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Bot exited")
	}
}
