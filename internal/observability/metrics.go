package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "snowex_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ingestion pipeline.
type Metrics struct {
	FilesAttempted prometheus.Counter
	FilesUploaded  prometheus.Counter
	FilesFailed    *prometheus.CounterVec // labels: kind={parse,vocabulary,validation,...}
	BatchRunning   prometheus.Gauge

	// UploadDuration observes a single file upload, labelled by file kind.
	UploadDuration *prometheus.HistogramVec // labels: kind={profile,point,site,raster}

	// Storage metrics.
	RowsInserted     *prometheus.CounterVec // labels: table={layer_data,point_data,image_data}
	DimensionUpserts *prometheus.CounterVec // labels: entity, result={hit,created,race}

	// Timezone lookup metrics.
	TimezoneCache *prometheus.CounterVec // labels: result={hit,miss}
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesAttempted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_attempted_total",
			Help:      "Total files an upload was attempted for.",
		}),
		FilesUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_uploaded_total",
			Help:      "Total files uploaded without error.",
		}),
		FilesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Total failed file uploads by error kind.",
		}, []string{"kind"}),
		BatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_running",
			Help:      "1 while a batch upload is in progress, 0 otherwise.",
		}),
		UploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_upload_duration_seconds",
			Help:      "Duration of a single file upload.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
		RowsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_inserted_total",
			Help:      "Fact rows inserted by table.",
		}, []string{"table"}),
		DimensionUpserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dimension_upserts_total",
			Help:      "Dimension get-or-create calls by entity and result.",
		}, []string{"entity", "result"}),
		TimezoneCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timezone_cache_total",
			Help:      "Point to timezone cache lookups by result.",
		}, []string{"result"}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.FilesAttempted,
		m.FilesUploaded,
		m.FilesFailed,
		m.BatchRunning,
		m.UploadDuration,
		m.RowsInserted,
		m.DimensionUpserts,
		m.TimezoneCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
