package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssargent/slippc/pkg/slp"
)

const (
	statusSuccess = "success"
	statusPartial = "partial"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Decode metrics
	decodesTotal   *prometheus.CounterVec
	decodeDuration prometheus.Histogram
	uploadBytes    prometheus.Histogram

	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates API metrics on a private registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

// NewMetricsWith registers API metrics on reg
func NewMetricsWith(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slippc_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "slippc_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "slippc_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		decodesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slippc_api_decodes_total",
				Help: "Uploaded captures decoded, by outcome and error kind",
			},
			[]string{"status", "kind"},
		),

		decodeDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "slippc_api_decode_duration_seconds",
				Help:    "Time spent decoding an uploaded capture",
				Buckets: prometheus.DefBuckets,
			},
		),

		uploadBytes: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "slippc_api_upload_bytes",
				Help:    "Size of uploaded captures",
				Buckets: prometheus.ExponentialBuckets(64*1024, 2, 10),
			},
		),

		healthChecksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slippc_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDecode records one decode of size bytes. A nil error is a success;
// an error with a replay is a partial decode.
func (m *Metrics) RecordDecode(size int, partial bool, err error, duration time.Duration) {
	status, kind := statusSuccess, "none"
	if err != nil {
		status, kind = statusError, "other"
		if partial {
			status = statusPartial
		}
		var de *slp.DecodeError
		if errors.As(err, &de) {
			kind = strings.ReplaceAll(de.Kind.String(), " ", "_")
		}
	}
	m.decodesTotal.WithLabelValues(status, kind).Inc()
	m.decodeDuration.Observe(duration.Seconds())
	m.uploadBytes.Observe(float64(size))
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.healthChecksTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		// capture the status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
