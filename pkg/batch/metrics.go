package batch

import (
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ssargent/slippc/pkg/slp"
)

// Metrics holds the Prometheus metrics of batch runs
type Metrics struct {
	registry *prometheus.Registry

	filesTotal     *prometheus.CounterVec
	decodeErrors   *prometheus.CounterVec
	framesTotal    prometheus.Counter
	decodeDuration prometheus.Histogram
	lastRun        prometheus.Gauge
}

// NewMetrics creates batch metrics on a private registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

// NewMetricsWith registers batch metrics on reg
func NewMetricsWith(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		filesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slippc_files_total",
				Help: "Captures processed, by outcome",
			},
			[]string{"status"},
		),

		decodeErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slippc_decode_errors_total",
				Help: "Decode errors, by kind",
			},
			[]string{"kind"},
		),

		framesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "slippc_frames_decoded_total",
				Help: "Frames reconstructed across all captures",
			},
		),

		decodeDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "slippc_decode_duration_seconds",
				Help:    "Time spent decoding one capture",
				Buckets: prometheus.DefBuckets,
			},
		),

		lastRun: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "slippc_last_run_timestamp_seconds",
				Help: "Unix time the last batch run finished",
			},
		),
	}
}

// Registry returns the registry holding the metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordFile counts one processed capture
func (m *Metrics) RecordFile(status Status, frames int, took time.Duration) {
	m.filesTotal.WithLabelValues(string(status)).Inc()
	m.framesTotal.Add(float64(frames))
	m.decodeDuration.Observe(took.Seconds())
}

// RecordError counts a decode error by kind
func (m *Metrics) RecordError(err error) {
	kind := "other"
	var de *slp.DecodeError
	if errors.As(err, &de) {
		kind = strings.ReplaceAll(de.Kind.String(), " ", "_")
	}
	m.decodeErrors.WithLabelValues(kind).Inc()
}

// RecordRun marks the end of a batch run
func (m *Metrics) RecordRun(at time.Time) {
	m.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes the metrics in the node-exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
