package core

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports operation counts and latency histograms.
type PrometheusMetricsRecorder struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder registers the catalog collectors with reg.
// Collectors already registered under the same names are reused.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crisprcatalog",
		Subsystem: "service",
		Name:      "operation_duration_seconds",
		Help:      "Latency of catalog service operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crisprcatalog",
		Subsystem: "service",
		Name:      "operations_total",
		Help:      "Catalog service operations by outcome.",
	}, []string{"operation", "status"})

	var err error
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if total, err = register(reg, total); err != nil {
		return nil, err
	}
	return &PrometheusMetricsRecorder{duration: duration, total: total}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := string(AuditStatusSuccess)
	if !success {
		status = string(AuditStatusError)
	}
	r.duration.WithLabelValues(operation, status).Observe(duration.Seconds())
	r.total.WithLabelValues(operation, status).Inc()
}
