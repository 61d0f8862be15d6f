package metrics

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// EnvLatencyBuckets overrides the request latency buckets, formatted like "100,200,300,400".
	EnvLatencyBuckets     = "COUNSELPRO_HTTP_LATENCY_BUCKETS"
	RequestsCollectorName = "http_requests_total"
	LatencyCollectorName  = "http_request_duration_milliseconds"
	InFlightCollectorName = "http_requests_in_flight"
)

var defaultBuckets = []float64{50, 300, 1000, 5000}

// Middleware exposes prometheus metrics for the number of requests and their latency,
// partitioned by status code, method and chi route pattern.
type Middleware struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func latencyBuckets() []float64 {
	conf, ok := os.LookupEnv(EnvLatencyBuckets)
	if !ok {
		return defaultBuckets
	}

	var buckets []float64
	for _, v := range strings.Split(conf, ",") {
		f64v, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			panic(err)
		}
		buckets = append(buckets, f64v)
	}
	return buckets
}

// NewMiddleware returns a new prometheus middleware for the provided service name.
func NewMiddleware(name string) *Middleware {
	labels := prometheus.Labels{"service": name}

	return &Middleware{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem:   counselPro,
			Name:        RequestsCollectorName,
			Help:        "Number of HTTP requests partitioned by status code, method and HTTP path.",
			ConstLabels: labels,
		}, []string{"code", "method", "path"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem:   counselPro,
			Name:        LatencyCollectorName,
			Help:        "Time spent on the request partitioned by status code, method and HTTP path.",
			ConstLabels: labels,
			Buckets:     latencyBuckets(),
		}, []string{"code", "method", "path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem:   counselPro,
			Name:        InFlightCollectorName,
			Help:        "Number of HTTP requests being served.",
			ConstLabels: labels,
		}),
	}
}

// Handler returns a handler for the middleware pattern.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		rp := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			rp = rctx.RoutePattern()
		}
		code := strconv.Itoa(ww.Status())
		m.requests.WithLabelValues(code, r.Method, rp).Inc()
		m.latency.WithLabelValues(code, r.Method, rp).Observe(float64(time.Since(start).Milliseconds()))
	}
	return http.HandlerFunc(fn)
}

// Collectors returns the collectors for your own registry.
func (m *Middleware) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.latency, m.inFlight}
}

// MustRegisterDefault registers the collectors to the default registerer.
func (m *Middleware) MustRegisterDefault() {
	prometheus.MustRegister(m.Collectors()...)
}
