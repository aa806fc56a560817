package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics registers the API metric families on a private
// registry so tests can create instances without collisions.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	questionsServedTotal *prometheus.CounterVec
	composeTotal         *prometheus.CounterVec
	composeChunks        *prometheus.HistogramVec
	purgedVectorsTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics() *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exambank",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, path and status.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exambank",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "exambank",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served.",
		},
	)
	questionsServedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exambank",
			Subsystem: "select",
			Name:      "questions_served_total",
			Help:      "Total exact-mode questions served by exam.",
		},
		[]string{"service", "exam"},
	)
	composeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exambank",
			Subsystem: "compose",
			Name:      "contexts_total",
			Help:      "Total composed contexts by gate outcome.",
		},
		[]string{"service", "outcome"},
	)
	composeChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exambank",
			Subsystem: "compose",
			Name:      "context_chunks",
			Help:      "Distribution of chunks per composed context.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 8, 10},
		},
		[]string{"service"},
	)
	purgedVectorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exambank",
			Subsystem: "index",
			Name:      "purged_vectors_total",
			Help:      "Total vectors removed by exam purges.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		questionsServedTotal,
		composeTotal,
		composeChunks,
		purgedVectorsTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		questionsServedTotal: questionsServedTotal,
		composeTotal:         composeTotal,
		composeChunks:        composeChunks,
		purgedVectorsTotal:   purgedVectorsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses the exam path segment so per-exam URLs do not
// explode label cardinality.
func normalizePath(path string) string {
	trimmed, ok := strings.CutPrefix(path, "/v1/exams/")
	if !ok {
		return path
	}
	_, rest, found := strings.Cut(trimmed, "/")
	if !found {
		return "/v1/exams/{exam}"
	}
	return "/v1/exams/{exam}/" + rest
}

func (m *HTTPServerMetrics) RecordQuestionServed(service, exam string) {
	m.questionsServedTotal.WithLabelValues(service, exam).Inc()
}

func (m *HTTPServerMetrics) RecordComposedContext(service string, gated bool, chunkCount int) {
	outcome := "gated"
	if !gated {
		outcome = "fallback"
	}
	m.composeTotal.WithLabelValues(service, outcome).Inc()
	m.composeChunks.WithLabelValues(service).Observe(float64(chunkCount))
}

func (m *HTTPServerMetrics) RecordPurgedVectors(service string, count int) {
	if count <= 0 {
		return
	}
	m.purgedVectorsTotal.WithLabelValues(service).Add(float64(count))
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

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
