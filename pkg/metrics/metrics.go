package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Load Metrics
	LoadRowsTotal   *prometheus.CounterVec
	LoadDuration    *prometheus.HistogramVec
	LoadErrorsTotal *prometheus.CounterVec

	// Ingestion Metrics
	IngestionRecordsTotal prometheus.Counter
	IngestionDuration     prometheus.Histogram
	IngestionErrorsTotal  *prometheus.CounterVec
	IngestionBatchSize    prometheus.Histogram

	// Database Metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec

	// Analysis Metrics
	FilteredRows             prometheus.Histogram
	StatsCalculationDuration *prometheus.HistogramVec
	StatsEmptyDatasetTotal   *prometheus.CounterVec
	PagesServedTotal         prometheus.Counter
}

// NewCollector creates a collector registered with the default Prometheus registry
func NewCollector(namespace string) *Collector {
	return NewCollectorWith(namespace, prometheus.DefaultRegisterer)
}

// builder creates namespaced metrics on one registerer
type builder struct {
	factory   promauto.Factory
	namespace string
}

func (b builder) counter(name, help string) prometheus.Counter {
	return b.factory.NewCounter(prometheus.CounterOpts{Namespace: b.namespace, Name: name, Help: help})
}

func (b builder) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return b.factory.NewCounterVec(prometheus.CounterOpts{Namespace: b.namespace, Name: name, Help: help}, labels)
}

func (b builder) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return b.factory.NewHistogram(prometheus.HistogramOpts{Namespace: b.namespace, Name: name, Help: help, Buckets: buckets})
}

func (b builder) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return b.factory.NewHistogramVec(prometheus.HistogramOpts{Namespace: b.namespace, Name: name, Help: help, Buckets: buckets}, labels)
}

func (b builder) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return b.factory.NewGaugeVec(prometheus.GaugeOpts{Namespace: b.namespace, Name: name, Help: help}, labels)
}

var (
	apiBuckets       = []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0}
	loadBuckets      = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30}
	ingestionBuckets = []float64{1, 5, 10, 30, 60, 120, 300, 600}
	batchBuckets     = []float64{10, 50, 100, 500, 1000, 5000, 10000}
	queryBuckets     = []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5}
	statsBuckets     = []float64{0.0005, 0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0}
)

// NewCollectorWith creates a collector registered with reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewCollectorWith(namespace string, reg prometheus.Registerer) *Collector {
	b := builder{factory: promauto.With(reg), namespace: namespace}

	return &Collector{
		APIRequestsTotal:   b.counterVec("api_requests_total", "Total number of API requests by endpoint, method, and status", "endpoint", "method", "status"),
		APIRequestDuration: b.histogramVec("api_request_duration_seconds", "API request duration in seconds", apiBuckets, "endpoint"),
		APIErrorsTotal:     b.counterVec("api_errors_total", "Total number of API errors by type", "error_type", "endpoint"),

		LoadRowsTotal:   b.counterVec("load_rows_total", "Total number of trip rows loaded by city", "city"),
		LoadDuration:    b.histogramVec("load_duration_seconds", "Duration of city dataset loads in seconds", loadBuckets, "city", "source"),
		LoadErrorsTotal: b.counterVec("load_errors_total", "Total number of failed city loads by error type", "error_type"),

		IngestionRecordsTotal: b.counter("ingestion_records_processed_total", "Total number of trip records ingested"),
		IngestionDuration:     b.histogram("ingestion_duration_seconds", "Duration of ingestion operations in seconds", ingestionBuckets),
		IngestionErrorsTotal:  b.counterVec("ingestion_errors_total", "Total number of ingestion errors by type", "error_type"),
		IngestionBatchSize:    b.histogram("ingestion_batch_size", "Number of records per batch during ingestion", batchBuckets),

		DBQueryDuration:  b.histogramVec("db_query_duration_seconds", "Database query duration in seconds by query type", queryBuckets, "query_type"),
		DBConnectionPool: b.gaugeVec("db_connection_pool", "Database connection pool statistics", "state"), // in_use, idle, total
		DBErrorsTotal:    b.counterVec("db_errors_total", "Total number of database errors by type", "error_type"),

		FilteredRows:             b.histogram("filtered_rows", "Number of rows left after month/day filtering", prometheus.ExponentialBuckets(1, 10, 8)),
		StatsCalculationDuration: b.histogramVec("stats_calculation_duration_seconds", "Duration of statistics calculation in seconds by section", statsBuckets, "section"),
		StatsEmptyDatasetTotal:   b.counterVec("stats_empty_dataset_total", "Statistics requests answered with an empty-dataset result by section", "section"),
		PagesServedTotal:         b.counter("raw_pages_served_total", "Total number of raw data pages returned"),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordLoadError increments load error counter
func (c *Collector) RecordLoadError(errorType string) {
	c.LoadErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordIngestionError increments ingestion error counter
func (c *Collector) RecordIngestionError(errorType string) {
	c.IngestionErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordEmptyDataset increments the empty-dataset counter for a statistics section
func (c *Collector) RecordEmptyDataset(section string) {
	c.StatsEmptyDatasetTotal.WithLabelValues(section).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
