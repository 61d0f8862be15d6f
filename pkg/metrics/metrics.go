package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	counselPro = "counselpro"

	// Pipeline metrics
	pipelineJobsTotal        = "pipeline_jobs_total"
	pipelineStageTotal       = "pipeline_stage_total"
	pipelineStageDuration    = "pipeline_stage_duration_seconds"
	pipelineJobsInFlight     = "pipeline_jobs_in_flight"
	pipelinePersistRetries   = "pipeline_persistence_retries_total"
	queueAdmissionsTotal     = "queue_admissions_total"
	reaperRecoveredRunsTotal = "reaper_recovered_runs_total"
	notificationsTotal       = "notifications_total"

	// Labels
	statusLabel  = "status"
	stageLabel   = "stage"
	outcomeLabel = "outcome"
	resultLabel  = "result"
)

/**
* Metrics definition
**/
var pipelineJobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: counselPro,
		Name:      pipelineJobsTotal,
		Help:      "number of analysis jobs partitioned by terminal status",
	},
	[]string{statusLabel},
)

var pipelineStageTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: counselPro,
		Name:      pipelineStageTotal,
		Help:      "number of stage runs partitioned by stage and outcome",
	},
	[]string{stageLabel, outcomeLabel},
)

var pipelineStageDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: counselPro,
		Name:      pipelineStageDuration,
		Help:      "time spent in each pipeline stage",
		Buckets:   []float64{1, 5, 15, 60, 180, 600, 1800},
	},
	[]string{stageLabel},
)

var pipelineJobsInFlightMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: counselPro,
		Name:      pipelineJobsInFlight,
		Help:      "number of analysis jobs currently owned by a worker",
	},
)

var pipelinePersistRetriesMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: counselPro,
		Name:      pipelinePersistRetries,
		Help:      "number of failed persistence attempts that were retried",
	},
)

var queueAdmissionsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: counselPro,
		Name:      queueAdmissionsTotal,
		Help:      "number of enqueue requests partitioned by result (accepted, duplicate, rejected)",
	},
	[]string{resultLabel},
)

var reaperRecoveredRunsTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: counselPro,
		Name:      reaperRecoveredRunsTotal,
		Help:      "number of abandoned runs marked as failed by the reaper",
	},
)

var notificationsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: counselPro,
		Name:      notificationsTotal,
		Help:      "number of notifications partitioned by result",
	},
	[]string{resultLabel},
)

func IncreasePipelineJobsTotalMetric(status string) {
	pipelineJobsTotalMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

func ObserveStage(stage, outcome string, elapsed time.Duration) {
	pipelineStageTotalMetric.With(prometheus.Labels{stageLabel: stage, outcomeLabel: outcome}).Inc()
	pipelineStageDurationMetric.With(prometheus.Labels{stageLabel: stage}).Observe(elapsed.Seconds())
}

func IncreaseJobsInFlight() {
	pipelineJobsInFlightMetric.Inc()
}

func DecreaseJobsInFlight() {
	pipelineJobsInFlightMetric.Dec()
}

func IncreasePersistenceRetriesMetric() {
	pipelinePersistRetriesMetric.Inc()
}

func IncreaseQueueAdmissionsMetric(result string) {
	queueAdmissionsTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

func IncreaseReaperRecoveredRunsMetric(count int) {
	reaperRecoveredRunsTotalMetric.Add(float64(count))
}

func IncreaseNotificationsMetric(result string) {
	notificationsTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(pipelineJobsTotalMetric)
	prometheus.MustRegister(pipelineStageTotalMetric)
	prometheus.MustRegister(pipelineStageDurationMetric)
	prometheus.MustRegister(pipelineJobsInFlightMetric)
	prometheus.MustRegister(pipelinePersistRetriesMetric)
	prometheus.MustRegister(queueAdmissionsTotalMetric)
	prometheus.MustRegister(reaperRecoveredRunsTotalMetric)
	prometheus.MustRegister(notificationsTotalMetric)
}
