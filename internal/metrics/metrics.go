// Package metrics exposes the service's own Prometheus instrumentation.
// These are self-observability counters for the pipeline and the alert
// engine. They are unrelated to the metric series derived from ingested
// logs, which live in the store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "loglens"

// Collector holds every metric the service records about itself.
type Collector struct {
	registry *prometheus.Registry

	IngestRequests  prometheus.Counter
	IngestRejected  prometheus.Counter
	RecordsIngested *prometheus.CounterVec
	IngestDuration  prometheus.Histogram

	AlertSweeps        prometheus.Counter
	AlertSweepDuration prometheus.Histogram
	AlertTriggers      prometheus.Counter
	NotifyFailures     *prometheus.CounterVec

	StorageErrors prometheus.Counter
	RateLimited   prometheus.Counter
}

// NewCollector builds a collector backed by its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		IngestRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_requests_total",
			Help:      "Total ingestion requests accepted for classification",
		}),
		IngestRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rejected_total",
			Help:      "Ingestion requests rejected (empty payload or zero parseable records)",
		}),
		RecordsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_ingested_total",
			Help:      "Records persisted, by detected format",
		}, []string{"format"}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Wall time of classify+derive+persist per request",
			Buckets:   prometheus.DefBuckets,
		}),
		AlertSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_sweeps_total",
			Help:      "Completed alert evaluation sweeps",
		}),
		AlertSweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "alert_sweep_duration_seconds",
			Help:      "Wall time of one full rule sweep",
			Buckets:   prometheus.DefBuckets,
		}),
		AlertTriggers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_triggers_total",
			Help:      "Rules whose condition was satisfied",
		}),
		NotifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Notification deliveries that failed, by transport",
		}, []string{"transport"}),
		StorageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Storage operations that returned an error",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rate_limited_total",
			Help:      "Ingestion requests rejected by the per-client rate limiter",
		}),
	}

	reg.MustRegister(
		c.IngestRequests, c.IngestRejected, c.RecordsIngested, c.IngestDuration,
		c.AlertSweeps, c.AlertSweepDuration, c.AlertTriggers, c.NotifyFailures,
		c.StorageErrors, c.RateLimited,
	)
	return c
}

// Registry returns the backing registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
