package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/unique-Sachin/CounselPro-AI/internal/store"
	"go.uber.org/zap"
)

type analysisStatsCollector struct {
	store            store.Store
	totalSessions    *prometheus.Desc
	analysesByStatus *prometheus.Desc
}

func NewAnalysisStatsCollector(s store.Store) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_%s", counselPro, name)
	}

	return &analysisStatsCollector{
		store: s,
		totalSessions: prometheus.NewDesc(
			fqName("sessions_total"),
			"Total number of registered sessions.",
			nil,
			prometheus.Labels{},
		),
		analysesByStatus: prometheus.NewDesc(
			fqName("analyses_by_status"),
			"Stored session analyses by status.",
			[]string{statusLabel},
			prometheus.Labels{},
		),
	}
}

func (c *analysisStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalSessions
	ch <- c.analysesByStatus
}

// Collect implements Collector.
func (c *analysisStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stats, err := c.store.Statistics(context.Background())
	if err != nil {
		zap.S().Named("analysis_collector").Errorf("failed to collect analysis statistics: %s", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.totalSessions, prometheus.GaugeValue, float64(stats.TotalSessions))

	for status, total := range stats.AnalysesByStatus {
		ch <- prometheus.MustNewConstMetric(c.analysesByStatus, prometheus.GaugeValue, float64(total), status.String())
	}
}
