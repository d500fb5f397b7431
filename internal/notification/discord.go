package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/mykytavoitishyn/stochastic-risk-assessment/internal/platform/http"
)

// Discord posts messages to a channel webhook.
type Discord struct {
	webhookURL string
	client     *httpClient.Client
	logger     zerolog.Logger
}

func NewDiscord(webhookURL string, client *httpClient.Client) *Discord {
	if client == nil {
		client = httpClient.NewClient(httpClient.ClientOptions{})
	}
	return &Discord{
		webhookURL: webhookURL,
		client:     client,
		logger:     log.With().Str("component", "discord").Logger(),
	}
}

type discordPayload struct {
	Content string `json:"content"`
}

// Send posts the message text. Discord answers a plain webhook call with
// 204; any other success code is accepted but logged.
func (d *Discord) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(discordPayload{Content: msg.Text})
	if err != nil {
		return fmt.Errorf("encoding discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.DoRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		d.logger.Warn().Int("status", resp.StatusCode).Msg("Unexpected webhook status")
	}
	return nil
}
