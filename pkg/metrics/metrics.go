package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	quantJobs = "quantjobs"

	jobsSubmittedTotal = "jobs_submitted_total"
	jobsFinishedTotal  = "jobs_finished_total"

	jobTypeLabel   = "type"
	jobAlgoLabel   = "algo"
	jobStatusLabel = "status"
)

var jobsSubmittedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: quantJobs,
		Name:      jobsSubmittedTotal,
		Help:      "number of jobs submitted, by type and algorithm",
	},
	[]string{jobTypeLabel, jobAlgoLabel},
)

var jobsFinishedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: quantJobs,
		Name:      jobsFinishedTotal,
		Help:      "number of jobs that reached a terminal status",
	},
	[]string{jobStatusLabel},
)

func IncreaseJobsSubmittedTotalMetric(jobType, algo string) {
	jobsSubmittedTotalMetric.With(prometheus.Labels{
		jobTypeLabel: jobType,
		jobAlgoLabel: algo,
	}).Inc()
}

func IncreaseJobsFinishedTotalMetric(status string) {
	jobsFinishedTotalMetric.With(prometheus.Labels{
		jobStatusLabel: status,
	}).Inc()
}

func init() {
	prometheus.MustRegister(jobsSubmittedTotalMetric)
	prometheus.MustRegister(jobsFinishedTotalMetric)
}

type PrometheusMetricsHandler struct{}

func NewPrometheusMetricsHandler() *PrometheusMetricsHandler {
	return &PrometheusMetricsHandler{}
}

func (p *PrometheusMetricsHandler) Handler() http.Handler {
	return promhttp.Handler()
}
