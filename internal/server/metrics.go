package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler partitions HTTP metrics by route pattern rather than raw
// path, so bot IDs do not explode label cardinality.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
type serverMetrics struct {
	// queryRequestsTotal counts chatbot and searchbot queries by bot kind
	// and outcome (a bot.Outcome, or one of the outcome* error labels).
	queryRequestsTotal *prometheus.CounterVec

	// queryDurationSeconds records end-to-end query latency by bot kind.
	queryDurationSeconds *prometheus.HistogramVec

	// queriesInFlight is the number of queries currently being answered.
	queriesInFlight prometheus.Gauge

	// httpRequestsTotal counts all HTTP requests handled by the mux.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg. A nil reg
// skips registration.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		queryRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plugmind",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of bot queries, partitioned by bot kind and outcome.",
		}, []string{"kind", "outcome"}),

		queryDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plugmind",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "End-to-end duration of bot queries.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind"}),

		queriesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "plugmind",
			Subsystem: "query",
			Name:      "in_flight",
			Help:      "Number of bot queries currently being answered.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plugmind",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plugmind",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// instrument records HTTP request metrics. It must wrap the mux directly so
// r.Pattern is populated after routing.
func (m *serverMetrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r)

		handler := r.Pattern
		if handler == "" {
			handler = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, handler, strconv.Itoa(rw.status)).Inc()
		m.httpDurationSeconds.WithLabelValues(r.Method, handler).Observe(time.Since(start).Seconds())
	})
}
