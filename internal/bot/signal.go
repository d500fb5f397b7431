package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/calculate"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/notification"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/platform/format"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/signal"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

type SignalBotConfig struct {
	Symbol       string
	Interval     string // kline interval, e.g. "1m"
	KlineLimit   int
	PollInterval time.Duration
	SendStatus   bool
}

// SignalBot evaluates a rule on recent klines and posts BUY and SELL alerts.
// A signal equal to the last one sent is not repeated.
type SignalBot struct {
	cfg      SignalBotConfig
	candles  models.CandleClient
	rule     Rule
	notifier notification.Notifier
	opts     Options
	logger   zerolog.Logger

	last signal.Signal
}

func NewSignalBot(cfg SignalBotConfig, candles models.CandleClient, rule Rule, notifier notification.Notifier, opts Options) (*SignalBot, error) {
	if cfg.Symbol == "" || cfg.PollInterval <= 0 || cfg.KlineLimit <= 0 {
		return nil, errors.New("signal bot: symbol, poll interval and kline limit are required")
	}
	if !models.ValidInterval(cfg.Interval) {
		return nil, fmt.Errorf("signal bot: unknown interval %q", cfg.Interval)
	}
	return &SignalBot{
		cfg:      cfg,
		candles:  candles,
		rule:     rule,
		notifier: notifier,
		opts:     opts,
		logger: log.With().
			Str("component", "signal_bot").
			Str("symbol", cfg.Symbol).
			Str("rule", rule.Name()).
			Logger(),
	}, nil
}

// Run blocks until ctx is cancelled.
func (b *SignalBot) Run(ctx context.Context) error {
	return run(ctx, "signal", b.cfg.PollInterval, b.opts, b.logger, b.Poll)
}

// Last returns the last signal that was delivered.
func (b *SignalBot) Last() signal.Signal { return b.last }

// Poll runs one evaluation. The last signal only advances once its alert
// was delivered, so a failed BUY is retried on the next poll.
func (b *SignalBot) Poll(ctx context.Context) error {
	candles, err := b.candles.Klines(ctx, b.cfg.Symbol, b.cfg.Interval, b.cfg.KlineLimit)
	if err != nil {
		return fmt.Errorf("fetching klines: %w", err)
	}
	if len(candles) == 0 {
		return ErrInsufficientData
	}

	closes := calculate.Closes(candles)
	price := closes[len(closes)-1]

	reading, err := b.rule.Evaluate(closes)
	if err != nil {
		return err
	}

	if m := b.opts.Metrics; m != nil {
		m.LastPrice.WithLabelValues(b.cfg.Symbol).Set(price)
		m.LastIndicator.WithLabelValues(b.rule.Name()).Set(reading.Value)
	}

	fresh := reading.Signal
	if fresh == b.last {
		fresh = signal.None
	}

	logEvent := b.logger.Info().Float64("price", price).Float64("value", reading.Value)
	if fresh == signal.None && !b.cfg.SendStatus {
		logEvent.Msg("No new signal")
		return nil
	}
	logEvent.Str("signal", fresh.String()).Msg("Sending")

	msg := b.message(fresh, price, reading)
	if err := send(ctx, b.notifier, msg, b.opts); err != nil {
		return fmt.Errorf("sending %s: %w", fresh, err)
	}

	if fresh != signal.None {
		b.last = fresh
		if m := b.opts.Metrics; m != nil {
			m.SignalsTotal.WithLabelValues(fresh.String()).Inc()
		}
	}
	return nil
}

func (b *SignalBot) message(s signal.Signal, price float64, reading Reading) notification.Message {
	header, level := "⚪ **No Signal**", notification.LevelInfo
	switch s {
	case signal.EnterLong:
		header, level = "🟢 **BUY SIGNAL**", notification.LevelSignal
	case signal.ExitLong:
		header, level = "🔴 **SELL SIGNAL**", notification.LevelSignal
	}

	text := fmt.Sprintf("%s\n```\nPrice:  $%s\n%s\nTime:   %s\n```",
		header, format.Money(price), reading.Detail, b.opts.now().Format("15:04:05"))
	return notification.Message{Level: level, Text: text}
}
