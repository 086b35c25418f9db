// Package metrics exposes sync and Shopify client measurements to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopify_sync"

// PrometheusRecorder implements MetricsRecorder on a private registry.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	retriesTotal       *prometheus.CounterVec
	circuitOpensTotal  prometheus.Counter
	recordsTotal       *prometheus.CounterVec
	recordErrorsTotal  *prometheus.CounterVec
	ingestionsTotal    *prometheus.CounterVec
	ingestionDuration  *prometheus.HistogramVec
	tenantSyncsTotal   *prometheus.CounterVec
	tenantSyncDuration prometheus.Histogram
	sweepsTotal        prometheus.Counter
	lastSweepTimestamp prometheus.Gauge
	lastSweepFailures  prometheus.Gauge
}

var _ ports.MetricsRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates the recorder and registers its collectors
func NewPrometheusRecorder() *PrometheusRecorder {
	// A private registry avoids conflicts with default metrics in tests
	registry := prometheus.NewRegistry()

	r := &PrometheusRecorder{registry: registry}

	r.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Shopify Admin API requests by method and status code (0 = no response).",
	}, []string{"method", "status"})

	r.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Shopify Admin API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	r.retriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_retries_total",
		Help:      "Retried Shopify requests by reason.",
	}, []string{"reason"})

	r.circuitOpensTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_opens_total",
		Help:      "Number of times a tenant client's circuit breaker opened.",
	})

	r.recordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_total",
		Help:      "Records handled by ingestion pipelines by outcome.",
	}, []string{"resource", "outcome"})

	r.recordErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "record_errors_total",
		Help:      "Per-record and fetch errors reported by ingestion pipelines.",
	}, []string{"resource"})

	r.ingestionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingestions_total",
		Help:      "Pipeline runs by resource and success.",
	}, []string{"resource", "success"})

	r.ingestionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ingestion_duration_seconds",
		Help:      "Pipeline run duration.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"resource"})

	r.tenantSyncsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tenant_syncs_total",
		Help:      "Tenant syncs by outcome.",
	}, []string{"outcome"})

	r.tenantSyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tenant_sync_duration_seconds",
		Help:      "Tenant sync duration.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})

	r.sweepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweeps_total",
		Help:      "Completed multi-tenant sweeps.",
	})

	r.lastSweepTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_sweep_timestamp_seconds",
		Help:      "Unix time the last sweep finished.",
	})

	r.lastSweepFailures = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_sweep_failed_tenants",
		Help:      "Tenants that failed in the last sweep.",
	})

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requestsTotal,
		r.requestDuration,
		r.retriesTotal,
		r.circuitOpensTotal,
		r.recordsTotal,
		r.recordErrorsTotal,
		r.ingestionsTotal,
		r.ingestionDuration,
		r.tenantSyncsTotal,
		r.tenantSyncDuration,
		r.sweepsTotal,
		r.lastSweepTimestamp,
		r.lastSweepFailures,
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *PrometheusRecorder) ObserveRequest(method string, statusCode int, duration time.Duration) {
	r.requestsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	r.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) ObserveRetry(reason string) {
	r.retriesTotal.WithLabelValues(reason).Inc()
}

func (r *PrometheusRecorder) ObserveCircuitOpen() {
	r.circuitOpensTotal.Inc()
}

func (r *PrometheusRecorder) ObserveIngestion(result *domain.IngestionResult) {
	resource := string(result.Resource)
	r.recordsTotal.WithLabelValues(resource, "written").Add(float64(result.RecordsProcessed))
	r.recordsTotal.WithLabelValues(resource, "skipped").Add(float64(result.RecordsSkipped))
	r.recordErrorsTotal.WithLabelValues(resource).Add(float64(len(result.Errors)))
	r.ingestionsTotal.WithLabelValues(resource, strconv.FormatBool(result.Success)).Inc()
	r.ingestionDuration.WithLabelValues(resource).Observe(result.Duration.Seconds())
}

func (r *PrometheusRecorder) ObserveTenantSync(failed bool, duration time.Duration) {
	outcome := "completed"
	if failed {
		outcome = "failed"
	}
	r.tenantSyncsTotal.WithLabelValues(outcome).Inc()
	r.tenantSyncDuration.Observe(duration.Seconds())
}

func (r *PrometheusRecorder) ObserveSweep(report *domain.SweepReport) {
	r.sweepsTotal.Inc()
	r.lastSweepTimestamp.Set(float64(report.StartedAt.Add(report.Duration).Unix()))
	r.lastSweepFailures.Set(float64(report.Failed))
}
