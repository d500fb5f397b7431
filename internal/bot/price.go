package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/notification"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/platform/format"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

type PriceBotConfig struct {
	Symbol   string
	Interval time.Duration
}

// PriceBot posts the latest price of one symbol on a fixed interval.
type PriceBot struct {
	cfg      PriceBotConfig
	prices   models.PriceClient
	notifier notification.Notifier
	opts     Options
	logger   zerolog.Logger
}

func NewPriceBot(cfg PriceBotConfig, prices models.PriceClient, notifier notification.Notifier, opts Options) (*PriceBot, error) {
	if cfg.Symbol == "" || cfg.Interval <= 0 {
		return nil, errors.New("price bot: symbol and a positive interval are required")
	}
	return &PriceBot{
		cfg:      cfg,
		prices:   prices,
		notifier: notifier,
		opts:     opts,
		logger:   log.With().Str("component", "price_bot").Str("symbol", cfg.Symbol).Logger(),
	}, nil
}

// Run blocks until ctx is cancelled.
func (b *PriceBot) Run(ctx context.Context) error {
	return run(ctx, "price", b.cfg.Interval, b.opts, b.logger, b.Poll)
}

// Poll fetches the price and posts it.
func (b *PriceBot) Poll(ctx context.Context) error {
	price, err := b.prices.TickerPrice(ctx, b.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("fetching price: %w", err)
	}
	if m := b.opts.Metrics; m != nil {
		m.LastPrice.WithLabelValues(b.cfg.Symbol).Set(price)
	}

	now := b.opts.now()
	text := fmt.Sprintf("**%s** $%s | %s", PairLabel(b.cfg.Symbol), format.Money(price), now.Format("2006-01-02 15:04:05"))
	b.logger.Info().Float64("price", price).Msg("Price")

	if err := send(ctx, b.notifier, notification.Message{Level: notification.LevelInfo, Text: text}, b.opts); err != nil {
		return fmt.Errorf("sending price: %w", err)
	}
	return nil
}
