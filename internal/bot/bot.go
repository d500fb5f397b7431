// Package bot runs the polling bots: a price ticker and a signal monitor
// that post to a notification channel.
package bot

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/metrics"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/notification"
)

// Options carries the optional collaborators of a bot.
type Options struct {
	Metrics *metrics.Metrics
	Health  *metrics.Health
	Now     func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// run polls once immediately and then on every tick until ctx is done.
// A failed poll is logged and the loop carries on.
func run(ctx context.Context, name string, interval time.Duration, opts Options, logger zerolog.Logger, poll func(context.Context) error) error {
	logger.Info().Dur("interval", interval).Msg("Bot started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		observePoll(ctx, name, opts, logger, poll)

		select {
		case <-ctx.Done():
			logger.Info().Msg("Bot stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func observePoll(ctx context.Context, name string, opts Options, logger zerolog.Logger, poll func(context.Context) error) {
	start := time.Now()
	err := poll(ctx)

	if m := opts.Metrics; m != nil {
		m.PollDuration.Observe(time.Since(start).Seconds())
		m.PollsTotal.WithLabelValues(name).Inc()
		if err != nil {
			m.PollErrors.WithLabelValues(name).Inc()
		}
	}

	if err != nil {
		if ctx.Err() == nil {
			logger.Error().Err(err).Msg("Poll failed")
		}
		if opts.Health != nil {
			opts.Health.PollFailed(err)
		}
		return
	}
	if opts.Health != nil {
		opts.Health.PollSucceeded(opts.now())
	}
}

// send delivers msg and records the outcome.
func send(ctx context.Context, n notification.Notifier, msg notification.Message, opts Options) error {
	err := n.Send(ctx, msg)
	if m := opts.Metrics; m != nil {
		result := "sent"
		if err != nil {
			result = "failed"
		}
		m.NotificationsTotal.WithLabelValues(result).Inc()
	}
	return err
}

var quoteAssets = []string{"USDT", "USDC", "BUSD", "FDUSD", "TUSD", "BTC", "ETH", "BNB", "EUR"}

// PairLabel renders a Binance symbol as BASE/QUOTE, e.g. BTCUSDT as BTC/USDT.
// Unknown quotes are returned unchanged.
func PairLabel(symbol string) string {
	s := strings.ToUpper(symbol)
	for _, q := range quoteAssets {
		if base, ok := strings.CutSuffix(s, q); ok && base != "" {
			return base + "/" + q
		}
	}
	return s
}
