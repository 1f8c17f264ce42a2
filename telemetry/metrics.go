// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	LinesDecoded   prometheus.Counter
	LinesDropped   prometheus.Counter
	CommandsRouted prometheus.Counter
	CommandsDenied prometheus.Counter
	TimeoutsIssued prometheus.Counter
	PyramidsBroken prometheus.Counter
	BroadcastsSent prometheus.Counter
	CommitFailures prometheus.Counter

	// Histograms (seconds)
	RouteDuration prometheus.Observer

	// Gauges
	BroadcastersGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		LinesDecoded = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_lines_decoded_total", Help: "Inbound lines decoded into events"})
		LinesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_lines_dropped_total", Help: "Inbound lines dropped as noise"})
		CommandsRouted = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_commands_routed_total", Help: "Commands that reached a handler"})
		CommandsDenied = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_commands_denied_total", Help: "Commands stopped by authorization, disable flag, or cooldown"})
		TimeoutsIssued = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_timeouts_issued_total", Help: "Moderation timeout directives emitted"})
		PyramidsBroken = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_pyramids_broken_total", Help: "Pyramid completions answered"})
		BroadcastsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_broadcasts_sent_total", Help: "Repeating-command broadcasts emitted"})
		CommitFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "catalog_commit_failures_total", Help: "Catalog commits that failed; memory and durable state have diverged"})
		RouteDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chat_route_duration_seconds", Help: "Decode-and-route duration per line", Buckets: prometheus.DefBuckets})
		BroadcastersGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_broadcasters_running", Help: "Currently running repeating-command loops"})
	})
}

// CommitFailureInc bumps the commit-failure counter if metrics are registered.
func CommitFailureInc() {
	if CommitFailures != nil {
		CommitFailures.Inc()
	}
}

// SetBroadcasters records the number of live broadcast loops.
func SetBroadcasters(n int) {
	if BroadcastersGauge != nil {
		BroadcastersGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
