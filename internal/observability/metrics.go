package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storm_resilience"

// Metrics holds the Prometheus counters, histograms, and gauges for a resilience run.
type Metrics struct {
	UnitsProcessed     prometheus.Counter
	UnitFailures       prometheus.Counter
	SpecialCases       *prometheus.CounterVec // labels: model={triangle,auc}
	SummariesPublished *prometheus.CounterVec // labels: sink={csv,kafka}
	LoadRetries        prometheus.Counter
	PipelineRunning    prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	AnalysisDuration        *prometheus.HistogramVec // labels: model={triangle,auc}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UnitsProcessed,
		m.UnitFailures,
		m.SpecialCases,
		m.SummariesPublished,
		m.LoadRetries,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.AnalysisDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UnitsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_processed_total",
			Help:      "Total census block groups analyzed.",
		}),
		UnitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unit_failures_total",
			Help:      "Total units skipped because their input violated an invariant.",
		}),
		SpecialCases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "special_cases_total",
			Help:      "Units whose model reported an abnormal pattern, by model.",
		}, []string{"model"}),
		SummariesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_published_total",
			Help:      "Summary rows written, by sink.",
		}, []string{"sink"}),
		LoadRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_retries_total",
			Help:      "Total batch load attempts that failed and were retried.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a batch run is active, 0 otherwise.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of units per extracted batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch analyze-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_analysis_duration_seconds",
			Help:      "Duration of preprocessing and model evaluation for one unit.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"model"}),
	}
}
