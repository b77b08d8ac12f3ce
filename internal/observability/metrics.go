package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline.
type Metrics struct {
	RecordsFetched    prometheus.Counter
	RecordsNormalized prometheus.Counter
	RecordsRejected   *prometheus.CounterVec // labels: reason={coordinates,timestamp,missing_id,other}
	RecordsWritten    prometheus.Counter
	WriteFailures     prometheus.Counter
	PipelineRunning   prometheus.Gauge

	IngestRunDuration prometheus.Histogram
	FetchDuration     prometheus.Histogram

	// Embedding metrics.
	EmbedRequests *prometheus.CounterVec // labels: outcome={success,error,skipped}
	EmbedCache    *prometheus.CounterVec // labels: result={hit,miss}
	EmbedEnabled  prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeEnabled  prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsFetched,
		m.RecordsNormalized,
		m.RecordsRejected,
		m.RecordsWritten,
		m.WriteFailures,
		m.PipelineRunning,
		m.IngestRunDuration,
		m.FetchDuration,
		m.EmbedRequests,
		m.EmbedCache,
		m.EmbedEnabled,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeEnabled,
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
		RecordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disaster_monitor",
			Name:      "records_fetched_total",
			Help:      "Total raw records read from the GDELT feed.",
		}),
		RecordsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disaster_monitor",
			Name:      "records_normalized_total",
			Help:      "Total records normalized into canonical events.",
		}),
		RecordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_monitor",
			Name:      "records_rejected_total",
			Help:      "Records rejected during normalization, by reason.",
		}, []string{"reason"}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disaster_monitor",
			Name:      "records_written_total",
			Help:      "Total canonical events upserted into the store.",
		}),
		WriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disaster_monitor",
			Name:      "write_failures_total",
			Help:      "Per-record store write failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "disaster_monitor",
			Name:      "pipeline_running",
			Help:      "1 when the ingestion loop is active, 0 when shut down.",
		}),
		IngestRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "disaster_monitor",
			Name:      "ingest_run_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-write run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "disaster_monitor",
			Name:      "fetch_duration_seconds",
			Help:      "GDELT export download and parse duration.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		EmbedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_monitor",
			Name:      "embed_requests_total",
			Help:      "Embedding requests by outcome.",
		}, []string{"outcome"}),
		EmbedCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_monitor",
			Name:      "embed_cache_total",
			Help:      "Embedding cache lookups by result.",
		}, []string{"result"}),
		EmbedEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "disaster_monitor",
			Name:      "embed_enabled",
			Help:      "1 when embedding generation is enabled, 0 otherwise.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_monitor",
			Name:      "geocode_requests_total",
			Help:      "Reverse-geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_monitor",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "disaster_monitor",
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
	}
}
