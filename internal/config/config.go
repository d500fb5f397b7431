package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

// Config holds all application configuration
type Config struct {
	Binance     BinanceConfig
	Backtest    BacktestConfig
	Bot         BotConfig
	Notify      NotifyConfig
	Log         LogConfig
	MetricsAddr string // empty disables the /metrics listener
}

type BinanceConfig struct {
	BaseURL        string
	APIKey         string
	APISecret      string
	Symbol         string
	Interval       string
	RequestTimeout time.Duration
	RequestsPerSec int
	MaxRetries     int
}

type BacktestConfig struct {
	DataPath       string
	InitialCapital float64
	RiskFreeRate   float64
	Strategies     []string // empty means every registered strategy
	OutputDir      string
}

type BotConfig struct {
	PollInterval  time.Duration
	PriceInterval time.Duration
	Rule          string // "rsi" or "ma"
	KlineInterval string
	KlineLimit    int
	RSIPeriod     int
	Oversold      float64
	Overbought    float64
	ShortWindow   int
	LongWindow    int
	SendStatus    bool // post a status message on polls without a new signal
}

type NotifyConfig struct {
	DiscordWebhookURL string
	TelegramToken     string
	TelegramChatID    int64
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.Binance.BaseURL = getEnvWithDefault("BINANCE_BASE_URL", "https://api.binance.com")
	cfg.Binance.APIKey = os.Getenv("BINANCE_API_KEY")
	cfg.Binance.APISecret = os.Getenv("BINANCE_API_SECRET")
	cfg.Binance.Symbol = getEnvWithDefault("SYMBOL", "BTCUSDT")
	cfg.Binance.Interval = getEnvWithDefault("INTERVAL", "1d")
	cfg.Binance.RequestTimeout = time.Duration(getEnvIntWithDefault("REQUEST_TIMEOUT", 10)) * time.Second
	cfg.Binance.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 10)
	cfg.Binance.MaxRetries = getEnvIntWithDefault("MAX_RETRIES", 3)

	cfg.Backtest.DataPath = os.Getenv("BACKTEST_DATA")
	cfg.Backtest.InitialCapital = getEnvFloatWithDefault("INITIAL_CAPITAL", 10000)
	cfg.Backtest.RiskFreeRate = getEnvFloatWithDefault("RISK_FREE_RATE", 0)
	cfg.Backtest.Strategies = getEnvListWithDefault("STRATEGIES", nil)
	cfg.Backtest.OutputDir = getEnvWithDefault("OUTPUT_DIR", "results")

	cfg.Bot.PollInterval = time.Duration(getEnvIntWithDefault("CHECK_INTERVAL", 60)) * time.Second
	cfg.Bot.PriceInterval = time.Duration(getEnvIntWithDefault("PRICE_INTERVAL", 300)) * time.Second
	cfg.Bot.Rule = getEnvWithDefault("SIGNAL_RULE", "rsi")
	cfg.Bot.KlineInterval = getEnvWithDefault("KLINE_INTERVAL", "1m")
	cfg.Bot.KlineLimit = getEnvIntWithDefault("KLINE_LIMIT", 50)
	cfg.Bot.RSIPeriod = getEnvIntWithDefault("RSI_PERIOD", 14)
	cfg.Bot.Oversold = getEnvFloatWithDefault("RSI_OVERSOLD", 30)
	cfg.Bot.Overbought = getEnvFloatWithDefault("RSI_OVERBOUGHT", 70)
	cfg.Bot.ShortWindow = getEnvIntWithDefault("MA_SHORT", 7)
	cfg.Bot.LongWindow = getEnvIntWithDefault("MA_LONG", 21)
	cfg.Bot.SendStatus = getEnvBoolWithDefault("SEND_STATUS", true)

	cfg.Notify.DiscordWebhookURL = os.Getenv("DISCORD_WEBHOOK_URL")
	cfg.Notify.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Notify.TelegramChatID = int64(getEnvIntWithDefault("TELEGRAM_CHAT_ID", 0))

	cfg.Log.Level = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.Log.Pretty = getEnvBoolWithDefault("LOG_PRETTY", true)

	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	return &cfg, nil
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	var errs []error

	if !models.ValidInterval(c.Binance.Interval) {
		errs = append(errs, fmt.Errorf("INTERVAL: unknown interval %q", c.Binance.Interval))
	}
	if !models.ValidInterval(c.Bot.KlineInterval) {
		errs = append(errs, fmt.Errorf("KLINE_INTERVAL: unknown interval %q", c.Bot.KlineInterval))
	}
	if c.Binance.Symbol == "" {
		errs = append(errs, errors.New("SYMBOL: must not be empty"))
	}
	if c.Backtest.InitialCapital <= 0 {
		errs = append(errs, fmt.Errorf("INITIAL_CAPITAL: must be positive, got %.2f", c.Backtest.InitialCapital))
	}
	if c.Bot.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("CHECK_INTERVAL: must be positive, got %s", c.Bot.PollInterval))
	}
	if c.Bot.PriceInterval <= 0 {
		errs = append(errs, fmt.Errorf("PRICE_INTERVAL: must be positive, got %s", c.Bot.PriceInterval))
	}
	switch c.Bot.Rule {
	case "rsi", "ma":
	default:
		errs = append(errs, fmt.Errorf("SIGNAL_RULE: must be rsi or ma, got %q", c.Bot.Rule))
	}
	if c.Bot.RSIPeriod <= 0 || c.Bot.ShortWindow <= 0 || c.Bot.LongWindow <= c.Bot.ShortWindow {
		errs = append(errs, fmt.Errorf("indicator periods: rsi %d, ma %d/%d", c.Bot.RSIPeriod, c.Bot.ShortWindow, c.Bot.LongWindow))
	}
	if c.Bot.KlineLimit <= c.Bot.RSIPeriod || c.Bot.KlineLimit <= c.Bot.LongWindow {
		errs = append(errs, fmt.Errorf("KLINE_LIMIT: %d candles cannot warm up the indicators", c.Bot.KlineLimit))
	}

	return errors.Join(errs...)
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid number, using default")
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvListWithDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
