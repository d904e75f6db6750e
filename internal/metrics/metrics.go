// Package metrics exposes Prometheus instrumentation for the engine and
// the HTTP service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	DocsScanned       prometheus.Counter
	DocsMatched       prometheus.Counter
	TxRetries         prometheus.Counter
	PlanCacheHits     prometheus.Counter
	PlanCacheMisses   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zerotable_operations_total",
			Help: "Operations by type and status.",
		}, []string{"operation", "status"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zerotable_operation_duration_seconds",
			Help:    "Operation latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"operation"}),
		DocsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zerotable_query_documents_scanned_total",
			Help: "Documents pulled from storage scans by query execution.",
		}),
		DocsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zerotable_query_documents_matched_total",
			Help: "Documents returned by query execution.",
		}),
		TxRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zerotable_tx_retries_total",
			Help: "Optimistic transaction conflict retries.",
		}),
		PlanCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zerotable_plan_cache_hits_total",
			Help: "Compiled-query cache hits.",
		}),
		PlanCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zerotable_plan_cache_misses_total",
			Help: "Compiled-query cache misses.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.OperationsTotal,
		m.OperationDuration,
		m.DocsScanned,
		m.DocsMatched,
		m.TxRetries,
		m.PlanCacheHits,
		m.PlanCacheMisses,
	)
	return m
}

// RecordOperation records one engine operation with its outcome.
func (m *Metrics) RecordOperation(operation, status string, d time.Duration) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
