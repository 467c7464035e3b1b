// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	PayloadsReceived     prometheus.Counter
	LogsFiltered         *prometheus.CounterVec
	ActivitiesRecorded   *prometheus.CounterVec
	ActivitiesDuplicate  *prometheus.CounterVec
	ActivitiesSkipped    *prometheus.CounterVec
	ActivityApplyLatency *prometheus.HistogramVec
	VolumeExportErrors   prometheus.Counter

	// Reconciliation metrics
	ReconcileRunsTotal *prometheus.CounterVec
	PositionDrift      prometheus.Counter
	ReconcileDuration  prometheus.Histogram

	// API metrics
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitedRequests *prometheus.CounterVec
	FeedSubscribers     prometheus.Gauge

	// On-chain reads
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "vault_indexer"
	}

	return &Metrics{
		// Ingestion metrics
		PayloadsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "payloads_received_total",
			Help:      "Total number of stream payloads received",
		}),
		LogsFiltered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "logs_filtered_total",
			Help:      "Total number of logs matching a configured vault",
		}, []string{"vault"}),
		ActivitiesRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "activities_recorded_total",
			Help:      "Total number of new activities recorded by type",
		}, []string{"vault", "type"}),
		ActivitiesDuplicate: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "activities_duplicate_total",
			Help:      "Total number of redelivered activities ignored",
		}, []string{"vault"}),
		ActivitiesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "activities_skipped_total",
			Help:      "Total number of logs or activities skipped by reason",
		}, []string{"vault", "reason"}),
		ActivityApplyLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "activity_apply_latency_seconds",
			Help:      "Latency of the record-and-apply transaction in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		VolumeExportErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "volume_export_errors_total",
			Help:      "Total number of failed analytics exports",
		}),

		// Reconciliation metrics
		ReconcileRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Total number of reconciliation runs by status",
		}, []string{"status"}),
		PositionDrift: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "position_drift_total",
			Help:      "Total number of positions whose stored totals differ from their activities",
		}),
		ReconcileDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Reconciliation run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),

		// API metrics
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
		RateLimitedRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}, []string{"route"}),
		FeedSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "subscribers",
			Help:      "Current number of live activity feed subscribers",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_latency_seconds",
			Help:      "RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPayload increments the payloads received counter.
func RecordPayload() {
	DefaultMetrics.PayloadsReceived.Inc()
}

// RecordLogsFiltered adds n matched logs for a vault.
func RecordLogsFiltered(vault string, n int) {
	DefaultMetrics.LogsFiltered.WithLabelValues(vault).Add(float64(n))
}

// RecordActivity records the outcome of one record-and-apply transaction.
func RecordActivity(vault, activityType string, inserted bool, seconds float64) {
	DefaultMetrics.ActivityApplyLatency.WithLabelValues(activityType).Observe(seconds)
	if inserted {
		DefaultMetrics.ActivitiesRecorded.WithLabelValues(vault, activityType).Inc()
		return
	}
	DefaultMetrics.ActivitiesDuplicate.WithLabelValues(vault).Inc()
}

// RecordSkipped records a skipped log or activity.
func RecordSkipped(vault, reason string) {
	DefaultMetrics.ActivitiesSkipped.WithLabelValues(vault, reason).Inc()
}

// RecordVolumeExportError increments the analytics export error counter.
func RecordVolumeExportError() {
	DefaultMetrics.VolumeExportErrors.Inc()
}

// RecordReconcile records a reconciliation run.
func RecordReconcile(status string, drifted int, durationSeconds float64) {
	DefaultMetrics.ReconcileRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.PositionDrift.Add(float64(drifted))
	DefaultMetrics.ReconcileDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records request latency.
func RecordHTTPRequest(route, status string, seconds float64) {
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route, status).Observe(seconds)
}

// RecordRateLimited increments the rate limited counter.
func RecordRateLimited(route string) {
	DefaultMetrics.RateLimitedRequests.WithLabelValues(route).Inc()
}

// SetFeedSubscribers updates the feed subscriber gauge.
func SetFeedSubscribers(n int) {
	DefaultMetrics.FeedSubscribers.Set(float64(n))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// MarkIngestion sets the last successful ingestion gauge.
func MarkIngestion(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulIngestion.Set(float64(unixSeconds))
}
