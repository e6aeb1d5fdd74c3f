// Package metrics holds the Prometheus collectors for carbon-tui.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	// APIRequests counts REST calls by resource, method and outcome.
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carbon_tui",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of REST requests issued to marketplace services.",
		},
		[]string{"resource", "method", "status"},
	)

	// APIDuration observes REST call latency by resource.
	APIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carbon_tui",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of REST requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"resource"},
	)

	// CacheLookups counts query cache reads by result (hit, miss, shared).
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carbon_tui",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Query cache reads by result.",
		},
		[]string{"result"},
	)

	// CacheInvalidations counts entries invalidated by resource prefix.
	CacheInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carbon_tui",
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Cache entries invalidated, by resource.",
		},
		[]string{"resource"},
	)

	// BusEvents counts bus deliveries by topic and outcome (delivered, dropped).
	BusEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carbon_tui",
			Subsystem: "bus",
			Name:      "events_total",
			Help:      "Event bus deliveries by topic and outcome.",
		},
		[]string{"topic", "outcome"},
	)

	// NotificationsShown counts notifications displayed by variant.
	NotificationsShown = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carbon_tui",
			Subsystem: "notify",
			Name:      "shown_total",
			Help:      "Notifications displayed, by variant.",
		},
		[]string{"variant"},
	)
)

func init() {
	Registry.MustRegister(
		APIRequests,
		APIDuration,
		CacheLookups,
		CacheInvalidations,
		BusEvents,
		NotificationsShown,
	)
}

// Handler returns an HTTP handler exposing the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve exposes the registry on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ServeListener(ctx, ln)
}

// ServeListener exposes the registry on ln until ctx is cancelled. It closes
// ln.
func ServeListener(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
