package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/quantdesk/quantjobs/internal/store"
)

type jobStatsCollector struct {
	store           store.Store
	totalJobs       *prometheus.Desc
	jobsByStatus    *prometheus.Desc
	totalClients    *prometheus.Desc
	totalPortfolios *prometheus.Desc
	totalAssets     *prometheus.Desc
}

func newJobStatsCollector(s store.Store) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_platform_%s", quantJobs, name)
	}

	return &jobStatsCollector{
		store: s,
		totalJobs: prometheus.NewDesc(
			fqName("jobs_total"),
			"Total number of jobs.",
			nil,
			prometheus.Labels{},
		),
		jobsByStatus: prometheus.NewDesc(
			fqName("jobs_by_status"),
			"Number of jobs per status.",
			[]string{"status"},
			prometheus.Labels{},
		),
		totalClients: prometheus.NewDesc(
			fqName("clients_total"),
			"Total number of clients.",
			nil,
			prometheus.Labels{},
		),
		totalPortfolios: prometheus.NewDesc(
			fqName("portfolios_total"),
			"Total number of portfolios.",
			nil,
			prometheus.Labels{},
		),
		totalAssets: prometheus.NewDesc(
			fqName("assets_total"),
			"Total number of assets.",
			nil,
			prometheus.Labels{},
		),
	}
}

// RegisterJobStatsCollector wires the store-backed gauges into the default
// prometheus registry.
func RegisterJobStatsCollector(s store.Store) {
	prometheus.MustRegister(newJobStatsCollector(s))
}

func (c *jobStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalJobs
	ch <- c.jobsByStatus
	ch <- c.totalClients
	ch <- c.totalPortfolios
	ch <- c.totalAssets
}

// Collect implements Collector.
func (c *jobStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stats, err := c.store.Statistics(context.Background())
	if err != nil {
		zap.S().Named("job_stats_collector").Errorf("failed to collect platform statistics: %s", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.totalJobs, prometheus.GaugeValue, float64(stats.TotalJobs))
	ch <- prometheus.MustNewConstMetric(c.totalClients, prometheus.GaugeValue, float64(stats.Clients))
	ch <- prometheus.MustNewConstMetric(c.totalPortfolios, prometheus.GaugeValue, float64(stats.Portfolios))
	ch <- prometheus.MustNewConstMetric(c.totalAssets, prometheus.GaugeValue, float64(stats.Assets))

	for status, total := range stats.JobsByStatus {
		ch <- prometheus.MustNewConstMetric(c.jobsByStatus, prometheus.GaugeValue, float64(total), status)
	}
}
