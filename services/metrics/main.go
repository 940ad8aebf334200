package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusDone    = "done"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// IngestionMetrics implements the ingestion pipeline's observer.
type IngestionMetrics struct {
	rows             prometheus.Counter
	skippedGenotypes prometheus.Counter
	columnErrors     prometheus.Counter
	bulkItemFailures prometheus.Counter
	bulkFlushes      prometheus.Counter
	bulkFlushLatency prometheus.Histogram
	files            *prometheus.CounterVec
	sampleRemovals   *prometheus.CounterVec
}

// New registers the collectors with reg; pass prometheus.DefaultRegisterer
// to expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *IngestionMetrics {
	m := &IngestionMetrics{
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gohan_ingested_rows_total",
			Help: "Total data lines parsed into variants",
		}),
		skippedGenotypes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gohan_skipped_reference_genotypes_total",
			Help: "Total 0|0 genotypes left out of stored variants",
		}),
		columnErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gohan_column_errors_total",
			Help: "Total fields that could not be parsed",
		}),
		bulkItemFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gohan_bulk_item_failures_total",
			Help: "Total variants rejected by the document store",
		}),
		bulkFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gohan_bulk_flushes_total",
			Help: "Total bulk writes issued",
		}),
		bulkFlushLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gohan_bulk_flush_duration_seconds",
			Help:    "Latency of bulk writes",
			Buckets: prometheus.DefBuckets,
		}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gohan_files_ingested_total",
			Help: "Total files processed, by outcome",
		}, []string{"status"}),
		sampleRemovals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gohan_sample_removal_variants_total",
			Help: "Total variants touched by sample removal, by phase",
		}, []string{"phase"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.rows,
			m.skippedGenotypes,
			m.columnErrors,
			m.bulkItemFailures,
			m.bulkFlushes,
			m.bulkFlushLatency,
			m.files,
			m.sampleRemovals,
		)
	}
	return m
}

func (m *IngestionMetrics) OnRow(skippedGenotypes int, columnErrors int) {
	m.rows.Inc()
	m.skippedGenotypes.Add(float64(skippedGenotypes))
	m.columnErrors.Add(float64(columnErrors))
}

func (m *IngestionMetrics) OnFlush(d time.Duration, failedItems int) {
	m.bulkFlushes.Inc()
	m.bulkFlushLatency.Observe(d.Seconds())
	m.bulkItemFailures.Add(float64(failedItems))
}

func (m *IngestionMetrics) OnFile(status string) {
	m.files.WithLabelValues(status).Inc()
}

func (m *IngestionMetrics) OnSampleRemoval(updated int, deleted int) {
	m.sampleRemovals.WithLabelValues("update").Add(float64(updated))
	m.sampleRemovals.WithLabelValues("delete").Add(float64(deleted))
}
