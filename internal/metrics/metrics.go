// Package metrics defines the Prometheus instrumentation for the bastion
// service. All collectors are registered on the default registry and exposed
// via the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsIngested counts accepted events by kind (login, security).
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bastion_events_ingested_total",
		Help: "Total number of events accepted by the ingest API.",
	}, []string{"kind"})

	// EventsDuplicate counts events rejected as duplicates by kind.
	EventsDuplicate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bastion_events_duplicate_total",
		Help: "Total number of events rejected because their ID already exists.",
	}, []string{"kind"})

	// ReportsGenerated counts successful daily report generations.
	ReportsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bastion_reports_generated_total",
		Help: "Total number of daily reports generated.",
	})

	// ReportFailures counts failed daily report generations.
	ReportFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bastion_report_failures_total",
		Help: "Total number of daily report generation failures.",
	})

	// DashboardQueries counts dashboard bulk fetches.
	DashboardQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bastion_dashboard_queries_total",
		Help: "Total number of dashboard bulk fetch requests.",
	})
)
