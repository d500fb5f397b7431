// Package notification delivers bot messages to chat channels.
package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/config"
	httpClient "github.com/mykytavoitishyn/stochastic-risk-assessment/internal/platform/http"
)

// Level is the severity of a message.
type Level string

const (
	LevelInfo   Level = "INFO"
	LevelSignal Level = "SIGNAL"
	LevelError  Level = "ERROR"
)

// Message is one notification. Text may contain Markdown.
type Message struct {
	Level Level
	Text  string
}

// Notifier delivers a message to one channel.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Log writes messages to the logger. It is the fallback when no channel is configured.
type Log struct {
	logger zerolog.Logger
}

func NewLog() *Log {
	return &Log{logger: log.With().Str("component", "notifier").Logger()}
}

func (n *Log) Send(_ context.Context, msg Message) error {
	n.logger.Info().Str("level", string(msg.Level)).Msg(msg.Text)
	return nil
}

// Multi sends every message to all notifiers. A failing channel does not
// stop the others; the errors are joined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds the notifiers the configuration enables: Discord when a
// webhook is set, Telegram when a token and chat are set. With neither, the
// result logs messages instead.
func FromConfig(cfg config.NotifyConfig, client *httpClient.Client) (Notifier, error) {
	var out Multi

	if cfg.DiscordWebhookURL != "" {
		out = append(out, NewDiscord(cfg.DiscordWebhookURL, client))
	}
	if cfg.TelegramToken != "" {
		if cfg.TelegramChatID == 0 {
			return nil, errors.New("TELEGRAM_CHAT_ID is required with TELEGRAM_BOT_TOKEN")
		}
		tg, err := NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		out = append(out, tg)
	}

	switch len(out) {
	case 0:
		log.Warn().Msg("No notification channel configured, messages will only be logged")
		return NewLog(), nil
	case 1:
		return out[0], nil
	}
	return out, nil
}
