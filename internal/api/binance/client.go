// Package binance is a small REST client for the Binance spot API: market
// data for backtests and bots, plus signed market orders.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/mykytavoitishyn/stochastic-risk-assessment/internal/platform/http"
)

const (
	MainnetURL = "https://api.binance.com"
	TestnetURL = "https://testnet.binance.vision"

	// DefaultRecvWindow is how long a signed request stays valid on the server.
	DefaultRecvWindow = 5 * time.Second
)

// ErrMissingCredentials is returned by signed endpoints without an API key and secret.
var ErrMissingCredentials = errors.New("binance: api key and secret are required")

// Client is the Binance API client
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	recvWindow time.Duration
	httpClient *httpClient.Client
	logger     zerolog.Logger
	now        func() time.Time
}

// ClientOptions holds options for creating a new Binance client
type ClientOptions struct {
	BaseURL         string
	APIKey          string
	APISecret       string
	RecvWindow      time.Duration
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new Binance API client
func NewClient(options ClientOptions) *Client {
	httpOpts := httpClient.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetries:      options.MaxRetries,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}

	// Apply defaults if not set
	if httpOpts.Timeout == 0 {
		httpOpts.Timeout = 10 * time.Second
	}
	if httpOpts.RequestsPerSec == 0 {
		httpOpts.RequestsPerSec = 10
	}
	if options.BaseURL == "" {
		options.BaseURL = TestnetURL
	}
	if options.RecvWindow == 0 {
		options.RecvWindow = DefaultRecvWindow
	}

	return &Client{
		baseURL:    strings.TrimRight(options.BaseURL, "/"),
		apiKey:     options.APIKey,
		apiSecret:  options.APISecret,
		recvWindow: options.RecvWindow,
		httpClient: httpClient.NewClient(httpOpts),
		logger:     log.With().Str("component", "binance_client").Logger(),
		now:        time.Now,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is the error payload Binance returns with a non-2xx status.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance api error %d (status %d): %s", e.Code, e.StatusCode, e.Message)
}

// apiError converts a transport status error into an APIError when the body
// carries Binance's {"code","msg"} payload.
func apiError(err error) error {
	var se *httpClient.StatusError
	if !errors.As(err, &se) {
		return err
	}

	apiErr := &APIError{StatusCode: se.StatusCode}
	if jsonErr := json.Unmarshal([]byte(se.Body), apiErr); jsonErr != nil || apiErr.Message == "" {
		return err
	}
	return apiErr
}

// get performs a public GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	c.logger.Debug().Str("path", path).Str("query", params.Encode()).Msg("Binance request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		err = apiError(err)
		c.logger.Error().Err(err).Str("path", req.URL.Path).Msg("Binance request failed")
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error().Err(err).Str("response", truncate(string(body), 256)).Msg("Error parsing JSON")
		return fmt.Errorf("parsing JSON: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
