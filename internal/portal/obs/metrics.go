// Package obs exposes Prometheus metrics for the portal.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	loginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_login_attempts_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"result"},
	)

	realtimeSubscribers = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "portal_realtime_subscribers",
		Help: "Connected realtime event subscribers.",
	}, func() float64 { return subscriberCount() })

	subscriberCount = func() float64 { return 0 }
)

// Login attempt outcomes recorded by ObserveLogin.
const (
	LoginSuccess     = "success"
	LoginBadPassword = "bad_password"
	LoginLockedOut   = "locked_out"
	LoginUnknownUser = "unknown_user"
	LoginInactive    = "inactive"
)

// Init registers the portal metrics with the default registry. SubscriberCount
// feeds the realtime subscriber gauge; pass nil when no hub is wired.
func Init(count func() int) {
	if count != nil {
		subscriberCount = func() float64 { return float64(count()) }
	}
	prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration,
		loginAttemptsTotal, realtimeSubscribers)
}

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLogin counts one login attempt outcome.
func ObserveLogin(result string) {
	loginAttemptsTotal.WithLabelValues(result).Inc()
}

// Instrument wraps a handler with request count, latency and in-flight
// measurements. The mux pattern is not available here so the raw path is used
// as the label; path cardinality stays low on this API.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming responses pass through the instrumented writer.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
