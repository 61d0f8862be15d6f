package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type PrometheusMetricsHandler struct {
	gatherer prometheus.Gatherer
}

// NewPrometheusMetricsHandler exposes the default registry.
func NewPrometheusMetricsHandler() *PrometheusMetricsHandler {
	return &PrometheusMetricsHandler{gatherer: prometheus.DefaultGatherer}
}

func (p *PrometheusMetricsHandler) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{
		ErrorLog:      zapErrorLog{},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// zapErrorLog satisfies promhttp.Logger.
type zapErrorLog struct{}

func (zapErrorLog) Println(v ...interface{}) {
	zap.S().Named("metrics_handler").Error(v...)
}
