package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const unmatchedRoute = "unmatched"

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	ingestTotal     *prometheus.CounterVec
	uploadBytes     *prometheus.HistogramVec
	sentimentScores *prometheus.HistogramVec
	analyticsTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintake",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docintake",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docintake",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	ingestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintake",
			Subsystem: "ingest",
			Name:      "uploads_total",
			Help:      "Total uploads by outcome (stored, duplicate, failed).",
		},
		[]string{"service", "outcome"},
	)
	uploadBytes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docintake",
			Subsystem: "ingest",
			Name:      "stored_bytes",
			Help:      "Size distribution of stored uploads.",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 4, 8),
		},
		[]string{"service"},
	)
	sentimentScores := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docintake",
			Subsystem: "ingest",
			Name:      "sentiment_score",
			Help:      "Sentiment score distribution of stored documents.",
			Buckets:   prometheus.LinearBuckets(-1, 0.25, 9),
		},
		[]string{"service"},
	)
	analyticsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintake",
			Subsystem: "analytics",
			Name:      "queries_total",
			Help:      "Total analytics queries by keyword usage.",
		},
		[]string{"service", "keyword"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		ingestTotal,
		uploadBytes,
		sentimentScores,
		analyticsTotal,
	)

	return &HTTPServerMetrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		ingestTotal:     ingestTotal,
		uploadBytes:     uploadBytes,
		sentimentScores: sentimentScores,
		analyticsTotal:  analyticsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware labels requests with the matched route pattern so customer ids
// and hashes never become label values. It must run inside the chi router.
func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		path := routePattern(r)
		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}

func (m *HTTPServerMetrics) RecordIngest(service, outcome string, sizeBytes int64, sentiment float64) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.ingestTotal.WithLabelValues(service, outcome).Inc()
	if outcome != "stored" {
		return
	}
	m.uploadBytes.WithLabelValues(service).Observe(float64(sizeBytes))
	m.sentimentScores.WithLabelValues(service).Observe(sentiment)
}

func (m *HTTPServerMetrics) RecordAnalyticsQuery(service string, withKeyword bool) {
	m.analyticsTotal.WithLabelValues(service, strconv.FormatBool(withKeyword)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
