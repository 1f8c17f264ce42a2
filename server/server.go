// Package server exposes the operational HTTP surface: health and readiness
// probes, a catalog status summary, and Prometheus metrics. It injects
// correlation IDs into request contexts for consistent logging.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/chatkeeper/catalog"
	"github.com/onnwee/chatkeeper/telemetry"
)

// Handlers carries the dependencies the endpoints read from.
type Handlers struct {
	db  *sql.DB
	cat *catalog.Catalog
}

// NewMux returns the HTTP handler with all routes.
func NewMux(db *sql.DB, cat *catalog.Catalog) http.Handler {
	h := &Handlers{db: db, cat: cat}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", h.HandleHealthz)
	mux.HandleFunc("/readyz", h.HandleReadyz)
	mux.HandleFunc("/status", h.HandleStatus)

	// Correlation ID injector and tracing wrapper.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path,
			attribute.String("http.method", r.Method),
			attribute.String("http.route", r.URL.Path),
		)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start",
			slog.String("method", r.Method), slog.String("path", r.URL.Path))
		mux.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests. Ready means the database
// answers and the catalog has been loaded.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := h.db.PingContext(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":       "not_ready",
			"failed_check": "database",
			"error":        err.Error(),
		})
		return
	}
	if h.cat == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":       "not_ready",
			"failed_check": "catalog",
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HandleStatus reports a summary of the catalog contents.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if h.cat == nil {
		http.Error(w, "catalog not loaded", http.StatusServiceUnavailable)
		return
	}
	snap := h.cat.Snapshot()

	repeating := 0
	for _, c := range snap.Commands {
		if c.Repeating {
			repeating++
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"commands":  len(snap.Commands),
		"repeating": repeating,
		"counters":  len(snap.Counters),
		"filters":   len(snap.Filters),
	})
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, db *sql.DB, cat *catalog.Catalog, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewMux(db, cat),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
