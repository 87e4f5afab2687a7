// Package metric provides Prometheus metrics for libcat-cli.
package metric

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "libcat"

// Profile fetch results.
const (
	ProfileSuccess = "success"
	ProfileFailure = "failure"
	ProfileDropped = "dropped"
	ProfileStale   = "stale"
)

// Registry holds all client metrics.
type Registry struct {
	reg *prometheus.Registry

	AuthOperations  *prometheus.CounterVec
	ProfileFetches  *prometheus.CounterVec
	Navigations     *prometheus.CounterVec
	Authenticated   prometheus.Gauge
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with all metrics registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		AuthOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "auth_operations_total",
			Help:      "Login, register, logout and invalidation outcomes.",
		}, []string{"operation", "result"}),
		ProfileFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "profile_fetches_total",
			Help:      "Profile resolution attempts by result.",
		}, []string{"result"}),
		Navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "navigations_total",
			Help:      "Navigation intents emitted by the session controller.",
		}, []string{"intent"}),
		Authenticated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "authenticated",
			Help:      "1 when a token and a resolved user are present.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Catalog API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}

	r.reg.MustRegister(
		r.AuthOperations,
		r.ProfileFetches,
		r.Navigations,
		r.Authenticated,
		r.RequestDuration,
	)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The write is atomic (temp file + rename).
func (r *Registry) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metric: create dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("metric: write textfile: %w", err)
	}
	return nil
}
