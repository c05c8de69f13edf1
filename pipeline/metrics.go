package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records what each run did per source. All methods are no-ops on a nil *Metrics.
type Metrics struct {
	// Source records by outcome: ok, error, skipped
	Records *prometheus.CounterVec

	// Source rows the merge could not place on a live entity
	Dropped *prometheus.CounterVec

	// Adapter run time by source
	Duration *prometheus.HistogramVec

	// Rows of the last unified table
	Rows prometheus.Gauge
}

// NewMetrics registers the run metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "county_records_total",
			Help: "Source records processed by outcome",
		}, []string{"source", "outcome"}),

		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "county_rows_dropped_total",
			Help: "Source rows that matched no live registry entity",
		}, []string{"source"}),

		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "county_source_duration_seconds",
			Help:    "Duration of one source adapter",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"source"}),

		Rows: f.NewGauge(prometheus.GaugeOpts{
			Name: "county_unified_rows",
			Help: "Rows of the last unified table",
		}),
	}
}

func (m *Metrics) ObserveSource(source string, d time.Duration) {
	if m != nil {
		m.Duration.WithLabelValues(source).Observe(d.Seconds())
	}
}

func (m *Metrics) AddRecords(source, outcome string, n int) {
	if m != nil && n > 0 {
		m.Records.WithLabelValues(source, outcome).Add(float64(n))
	}
}

func (m *Metrics) AddDropped(source string, n int) {
	if m != nil && n > 0 {
		m.Dropped.WithLabelValues(source).Add(float64(n))
	}
}

func (m *Metrics) SetRows(n int) {
	if m != nil {
		m.Rows.Set(float64(n))
	}
}
