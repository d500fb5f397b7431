package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Metrics holds the Prometheus collectors shared by the bots.
type Metrics struct {
	PollsTotal         *prometheus.CounterVec // labels: bot
	PollErrors         *prometheus.CounterVec // labels: bot
	PollDuration       prometheus.Histogram
	SignalsTotal       *prometheus.CounterVec // labels: signal
	NotificationsTotal *prometheus.CounterVec // labels: result=sent|failed
	LastPrice          *prometheus.GaugeVec   // labels: symbol
	LastIndicator      *prometheus.GaugeVec   // labels: rule

	registry *prometheus.Registry
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riskbot_polls_total",
			Help: "Completed poll cycles",
		}, []string{"bot"}),
		PollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riskbot_poll_errors_total",
			Help: "Poll cycles that failed",
		}, []string{"bot"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "riskbot_poll_duration_seconds",
			Help:    "Duration of one poll cycle including notification",
			Buckets: prometheus.DefBuckets,
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riskbot_signals_total",
			Help: "Signals emitted, by kind",
		}, []string{"signal"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riskbot_notifications_total",
			Help: "Notification attempts, by result",
		}, []string{"result"}),
		LastPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "riskbot_last_price",
			Help: "Last observed price",
		}, []string{"symbol"}),
		LastIndicator: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "riskbot_last_indicator",
			Help: "Last indicator value seen by the signal rule",
		}, []string{"rule"}),
		registry: reg,
	}

	reg.MustRegister(
		m.PollsTotal,
		m.PollErrors,
		m.PollDuration,
		m.SignalsTotal,
		m.NotificationsTotal,
		m.LastPrice,
		m.LastIndicator,
	)
	return m
}

// Registry exposes the registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Health is the /healthz view of a running bot.
type Health struct {
	mu        sync.RWMutex
	startedAt time.Time
	lastPoll  time.Time
	lastError string
	maxAge    time.Duration
}

// NewHealth reports unhealthy once no poll has succeeded for maxAge.
func NewHealth(maxAge time.Duration) *Health {
	return &Health{startedAt: time.Now(), maxAge: maxAge}
}

func (h *Health) PollSucceeded(at time.Time) {
	h.mu.Lock()
	h.lastPoll = at
	h.lastError = ""
	h.mu.Unlock()
}

func (h *Health) PollFailed(err error) {
	h.mu.Lock()
	h.lastError = err.Error()
	h.mu.Unlock()
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status, code := "healthy", http.StatusOK
	ref := h.lastPoll
	if ref.IsZero() {
		ref = h.startedAt
	}
	if h.maxAge > 0 && time.Since(ref) > h.maxAge {
		status, code = "stale", http.StatusServiceUnavailable
	}

	var lastPoll string
	if !h.lastPoll.IsZero() {
		lastPoll = h.lastPoll.Format(time.RFC3339)
	}
	body := struct {
		Status    string `json:"status"`
		Uptime    string `json:"uptime"`
		LastPoll  string `json:"last_poll,omitempty"`
		LastError string `json:"last_error,omitempty"`
	}{
		Status:    status,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		LastPoll:  lastPoll,
		LastError: h.lastError,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// Server exposes /metrics and /healthz.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

func NewServer(addr string, m *Metrics, health *Health) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           Handler(m, health),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log.With().Str("component", "metrics").Logger(),
	}
}

// Handler routes /metrics to the private registry and /healthz to health.
func Handler(m *Metrics, health *Health) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)
	return mux
}

// Start launches the listener in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("Metrics server listening")
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
