package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_store"

// Metrics holds the Prometheus counters, histograms, and gauges for the store,
// the query layer, and the materialization scheduler.
type Metrics struct {
	// Store adapter metrics.
	StoreOperations        *prometheus.CounterVec   // labels: collection, op, outcome={ok,error}
	StoreOperationDuration *prometheus.HistogramVec // labels: op

	// Aggregation metrics.
	AggregationRuns     *prometheus.CounterVec   // labels: pipeline, outcome={ok,error}
	AggregationDuration *prometheus.HistogramVec // labels: pipeline
	AggregationRows     *prometheus.CounterVec   // labels: pipeline

	// Import and update protocol metrics.
	DocumentsImported *prometheus.CounterVec // labels: collection
	ImportFailures    *prometheus.CounterVec // labels: source
	VersionBumps      *prometheus.CounterVec // labels: operation

	// Station directory cache.
	StationCache *prometheus.CounterVec // labels: result={hit,miss}

	// Materialization.
	MaterializationRuns     *prometheus.CounterVec   // labels: job, outcome={ok,error}
	MaterializationDuration *prometheus.HistogramVec // labels: job
	ExtremesPublished       prometheus.Counter
	SchedulerRunning        prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.StoreOperations,
		m.StoreOperationDuration,
		m.AggregationRuns,
		m.AggregationDuration,
		m.AggregationRows,
		m.DocumentsImported,
		m.ImportFailures,
		m.VersionBumps,
		m.StationCache,
		m.MaterializationRuns,
		m.MaterializationDuration,
		m.ExtremesPublished,
		m.SchedulerRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Store adapter calls by collection, operation, and outcome.",
		}, []string{"collection", "op", "outcome"}),
		StoreOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Round-trip duration of store adapter calls.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"op"}),
		AggregationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_runs_total",
			Help:      "Aggregation pipeline executions by pipeline and outcome.",
		}, []string{"pipeline", "outcome"}),
		AggregationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of aggregation pipeline executions.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 10},
		}, []string{"pipeline"}),
		AggregationRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_rows_total",
			Help:      "Rows returned by aggregation pipelines.",
		}, []string{"pipeline"}),
		DocumentsImported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_imported_total",
			Help:      "Documents written by the importer per collection.",
		}, []string{"collection"}),
		ImportFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_failures_total",
			Help:      "Import units aborted by source kind.",
		}, []string{"source"}),
		VersionBumps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_version_bumps_total",
			Help:      "Report version increments by mutating operation.",
		}, []string{"operation"}),
		StationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_cache_total",
			Help:      "Station directory cache lookups by result.",
		}, []string{"result"}),
		MaterializationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "materialization_runs_total",
			Help:      "Derived collection refreshes by job and outcome.",
		}, []string{"job", "outcome"}),
		MaterializationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "materialization_duration_seconds",
			Help:      "Duration of derived collection refreshes.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"job"}),
		ExtremesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extremes_published_total",
			Help:      "Extreme weather records written to the sink topic.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 when the materialization scheduler is active, 0 when shut down.",
		}),
	}
}
