package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/metrics"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/notification"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/signal"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

type recorder struct {
	mu   sync.Mutex
	msgs []notification.Message
	err  error
	sent chan struct{}
}

func newRecorder() *recorder { return &recorder{sent: make(chan struct{}, 100)} }

func (r *recorder) Send(_ context.Context, msg notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	r.sent <- struct{}{}
	return nil
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.msgs))
	for i, m := range r.msgs {
		out[i] = m.Text
	}
	return out
}

type fakeMarket struct {
	mu     sync.Mutex
	closes []float64
	price  float64
	err    error
}

func (f *fakeMarket) set(price float64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price, f.err = price, err
}

func (f *fakeMarket) Klines(_ context.Context, _, _ string, _ int) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Candle, len(f.closes))
	for i, c := range f.closes {
		out[i] = models.Candle{Close: c}
	}
	return out, nil
}

func (f *fakeMarket) TickerPrice(_ context.Context, _ string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.price, f.err
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestPairLabel(t *testing.T) {
	tests := map[string]string{
		"BTCUSDT":  "BTC/USDT",
		"ethbtc":   "ETH/BTC",
		"SOLFDUSD": "SOL/FDUSD",
		"USDT":     "USDT",
		"XYZ":      "XYZ",
	}
	for in, want := range tests {
		assert.Equal(t, want, PairLabel(in), in)
	}
}

func TestPriceBot_Poll(t *testing.T) {
	rec := newRecorder()
	m := metrics.New()
	b, err := NewPriceBot(PriceBotConfig{Symbol: "BTCUSDT", Interval: time.Minute},
		&fakeMarket{price: 42123.456}, rec, Options{Metrics: m, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)

	require.NoError(t, b.Poll(context.Background()))

	assert.Equal(t, []string{"**BTC/USDT** $42,123.46 | 2024-05-01 12:30:00"}, rec.texts())
	assert.Equal(t, 42123.456, testutil.ToFloat64(m.LastPrice.WithLabelValues("BTCUSDT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("sent")))
}

func TestPriceBot_RunKeepsPollingAfterErrors(t *testing.T) {
	rec := newRecorder()
	market := &fakeMarket{err: errors.New("timeout")}
	m := metrics.New()
	health := metrics.NewHealth(0)

	b, err := NewPriceBot(PriceBotConfig{Symbol: "BTCUSDT", Interval: 5 * time.Millisecond},
		market, rec, Options{Metrics: m, Health: health})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.PollErrors.WithLabelValues("price")) >= 2
	}, time.Second, time.Millisecond)

	market.set(100, nil)

	select {
	case <-rec.sent:
	case <-time.After(time.Second):
		t.Fatal("no message after recovery")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
}

func TestNewBots_Validation(t *testing.T) {
	_, err := NewPriceBot(PriceBotConfig{Symbol: "BTCUSDT"}, &fakeMarket{}, newRecorder(), Options{})
	assert.Error(t, err)

	rule := RSIRule{Period: 14, Oversold: 30, Overbought: 70}
	_, err = NewSignalBot(SignalBotConfig{Symbol: "BTCUSDT", Interval: "7m", KlineLimit: 50, PollInterval: time.Second},
		&fakeMarket{}, rule, newRecorder(), Options{})
	assert.ErrorContains(t, err, "7m")
}

func TestRSIRule(t *testing.T) {
	rule := RSIRule{Period: 14, Oversold: 30, Overbought: 70}
	alternating := make([]float64, 30)
	for i := range alternating {
		alternating[i] = 100 + float64(i%2)
	}

	tests := []struct {
		name   string
		closes []float64
		want   signal.Signal
		detail string
	}{
		{"falling is oversold", ramp(30, 100, -1), signal.EnterLong, "RSI:    0.0 (oversold < 30)"},
		{"rising is overbought", ramp(30, 100, 1), signal.ExitLong, "RSI:    100.0 (overbought > 70)"},
		{"choppy is neutral", alternating, signal.None, "(neutral: 30-70)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := rule.Evaluate(tt.closes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Signal)
			assert.Contains(t, r.Detail, tt.detail)
		})
	}

	_, err := rule.Evaluate(ramp(14, 1, 1))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestMACrossRule(t *testing.T) {
	rule := MACrossRule{Short: 2, Long: 3}

	tests := []struct {
		name   string
		closes []float64
		want   signal.Signal
		label  string
	}{
		{"golden cross", []float64{10, 10, 10, 10, 20}, signal.EnterLong, "golden cross"},
		{"death cross", []float64{10, 10, 10, 10, 0}, signal.ExitLong, "death cross"},
		{"trend without cross", []float64{1, 2, 3, 4, 5}, signal.None, "above"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := rule.Evaluate(tt.closes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Signal)
			assert.Contains(t, r.Detail, tt.label)
		})
	}

	_, err := rule.Evaluate([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func newSignalBot(t *testing.T, market *fakeMarket, n notification.Notifier, sendStatus bool, m *metrics.Metrics) *SignalBot {
	t.Helper()
	b, err := NewSignalBot(
		SignalBotConfig{Symbol: "BTCUSDT", Interval: "1m", KlineLimit: 50, PollInterval: time.Minute, SendStatus: sendStatus},
		market, RSIRule{Period: 14, Oversold: 30, Overbought: 70}, n,
		Options{Metrics: m, Now: func() time.Time { return fixedNow }},
	)
	require.NoError(t, err)
	return b
}

func TestSignalBot_DeduplicatesSignals(t *testing.T) {
	market := &fakeMarket{}
	rec := newRecorder()
	m := metrics.New()
	b := newSignalBot(t, market, rec, true, m)

	steps := []struct {
		closes []float64
		header string
		last   signal.Signal
	}{
		{ramp(50, 200, -1), "🟢 **BUY SIGNAL**", signal.EnterLong},
		{ramp(50, 200, -1), "⚪ **No Signal**", signal.EnterLong},
		{ramp(50, 100, 1), "🔴 **SELL SIGNAL**", signal.ExitLong},
		{ramp(50, 100, 1), "⚪ **No Signal**", signal.ExitLong},
		{ramp(50, 200, -1), "🟢 **BUY SIGNAL**", signal.EnterLong},
	}

	for i, step := range steps {
		market.closes = step.closes
		require.NoError(t, b.Poll(context.Background()), "step %d", i)

		texts := rec.texts()
		require.Len(t, texts, i+1)
		assert.True(t, strings.HasPrefix(texts[i], step.header), "step %d: %s", i, texts[i])
		assert.Equal(t, step.last, b.Last(), "step %d", i)
	}

	assert.Contains(t, rec.texts()[0], "Price:  $151.00")
	assert.Contains(t, rec.texts()[0], "Time:   12:30:00")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SignalsTotal.WithLabelValues("ENTER_LONG")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignalsTotal.WithLabelValues("EXIT_LONG")))
	assert.Equal(t, 151.0, testutil.ToFloat64(m.LastPrice.WithLabelValues("BTCUSDT")))
}

func TestSignalBot_QuietWithoutStatus(t *testing.T) {
	market := &fakeMarket{closes: ramp(50, 200, -1)}
	rec := newRecorder()
	b := newSignalBot(t, market, rec, false, nil)

	require.NoError(t, b.Poll(context.Background()))
	require.NoError(t, b.Poll(context.Background()))

	assert.Len(t, rec.texts(), 1)
}

func TestSignalBot_FailedDeliveryIsRetried(t *testing.T) {
	market := &fakeMarket{closes: ramp(50, 200, -1)}
	rec := newRecorder()
	rec.err = errors.New("webhook down")
	m := metrics.New()
	b := newSignalBot(t, market, rec, true, m)

	assert.ErrorContains(t, b.Poll(context.Background()), "webhook down")
	assert.Equal(t, signal.None, b.Last())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("failed")))

	rec.err = nil
	require.NoError(t, b.Poll(context.Background()))
	assert.Equal(t, signal.EnterLong, b.Last())
	assert.True(t, strings.HasPrefix(rec.texts()[0], "🟢 **BUY SIGNAL**"))
}

func TestSignalBot_FetchError(t *testing.T) {
	b := newSignalBot(t, &fakeMarket{err: errors.New("418")}, newRecorder(), true, nil)
	assert.ErrorContains(t, b.Poll(context.Background()), "fetching klines")

	b = newSignalBot(t, &fakeMarket{}, newRecorder(), true, nil)
	assert.ErrorIs(t, b.Poll(context.Background()), ErrInsufficientData)
}
