package prometheus

import (
	"time"

	"asset-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthSuccessCounter  prometheus.Counter
	AuthErrorsCounter   prometheus.Counter

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Entity CRUD metrics
	AssetOperationsCounter    prometheus.CounterVec
	CategoryOperationsCounter prometheus.CounterVec
	LocationOperationsCounter prometheus.CounterVec

	// Transition engine metrics
	TransitionsCounter prometheus.CounterVec

	// Ledger metrics
	LedgerEntriesCounter prometheus.CounterVec
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	// HTTP request metrics
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration
	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Authentication metrics
	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthSuccessCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_success_total",
			Help: "Total number of successful authentications",
		},
	)

	AuthErrorsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
	)

	// Database operation metrics
	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// Asset metrics
	AssetOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_asset_operations_total",
			Help: "Total number of asset operations",
		},
		[]string{"operation"},
	)

	// Category metrics
	CategoryOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_category_operations_total",
			Help: "Total number of category operations",
		},
		[]string{"operation"},
	)

	// Location metrics
	LocationOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_location_operations_total",
			Help: "Total number of location operations",
		},
		[]string{"operation"},
	)

	// Transition engine metrics
	TransitionsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_transitions_total",
			Help: "Total number of asset transitions by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	// Ledger metrics
	LedgerEntriesCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_ledger_entries_total",
			Help: "Total number of ledger entries appended",
		},
		[]string{"type"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordAssetOperation increments the counter for asset operations
func RecordAssetOperation(operation string) {
	AssetOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordCategoryOperation increments the counter for category operations
func RecordCategoryOperation(operation string) {
	CategoryOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordLocationOperation increments the counter for location operations
func RecordLocationOperation(operation string) {
	LocationOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordTransition increments the counter for transitions
func RecordTransition(transitionType string, outcome string) {
	TransitionsCounter.WithLabelValues(transitionType, outcome).Inc()
}

// RecordLedgerEntry increments the counter for appended ledger entries
func RecordLedgerEntry(transitionType string) {
	LedgerEntriesCounter.WithLabelValues(transitionType).Inc()
}
