package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	instruments    *prometheus.CounterVec
	fallbacks      prometheus.Counter
	recordsWritten *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	lastRun        prometheus.Gauge
	lastNetValue   *prometheus.GaugeVec
}

// New creates a recorder whose collectors are registered on reg. A nil reg
// means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		instruments: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundsignal_instruments_total",
				Help: "Instruments processed by outcome state",
			},
			[]string{"state"},
		),
		fallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "fundsignal_short_series_total",
			Help: "Series evaluated with the short-series fallback",
		}),
		recordsWritten: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundsignal_records_written_total",
				Help: "Signal records written per sink",
			},
			[]string{"sink"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundsignal_errors_total",
				Help: "Errors encountered by kind",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundsignal_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "fundsignal_last_run_timestamp_seconds",
			Help: "Unix time the last batch finished",
		}),
		lastNetValue: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fundsignal_last_net_value",
				Help: "Most recent net value seen per fund",
			},
			[]string{"code"},
		),
	}
}

func (r *Recorder) RecordInstrument(state string) { r.instruments.WithLabelValues(state).Inc() }

func (r *Recorder) RecordFallback() { r.fallbacks.Inc() }

func (r *Recorder) RecordRecordsWritten(sink string, n int) {
	r.recordsWritten.WithLabelValues(sink).Add(float64(n))
}

func (r *Recorder) RecordError(kind string) { r.errorsTotal.WithLabelValues(kind).Inc() }

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordNetValue(code string, value float64) {
	r.lastNetValue.WithLabelValues(code).Set(value)
}

func (r *Recorder) RecordRunFinished(at time.Time) { r.lastRun.Set(float64(at.Unix())) }
