// Package metrics counts generation attempts and requests with Prometheus.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sitegen"

// Recorder implements generation.Recorder on a private registry, so several
// recorders can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	attempts *prometheus.CounterVec
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Pipeline attempts by outcome (success or failure kind).",
			},
			[]string{"outcome"},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Finished generation requests by result.",
			},
			[]string{"result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Wall time from request start to result.",
				Buckets:   prometheus.ExponentialBuckets(5, 2, 8), // 5s to ~10m
			},
			[]string{"result"},
		),
	}
}

// AttemptFinished counts one attempt.
func (r *Recorder) AttemptFinished(outcome string) {
	r.attempts.WithLabelValues(outcome).Inc()
}

// RequestFinished counts one request and observes its duration.
func (r *Recorder) RequestFinished(success bool, kind string, duration time.Duration) {
	result := resultLabel(success, kind)
	r.requests.WithLabelValues(result).Inc()
	r.duration.WithLabelValues(result).Observe(duration.Seconds())
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current values in the text exposition format for
// node_exporter's textfile collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

func resultLabel(success bool, kind string) string {
	if success {
		return "success"
	}
	if kind == "" {
		return "failure"
	}
	return kind
}
