package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voyager_jobs_submitted_total",
		Help: "Jobs accepted by the dispatcher, by kind.",
	}, []string{"kind"})

	jobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voyager_jobs_completed_total",
		Help: "Jobs that reached Completed, by kind.",
	}, []string{"kind"})

	jobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voyager_jobs_failed_total",
		Help: "Jobs that reached Failed, by kind.",
	}, []string{"kind"})

	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voyager_jobs_in_flight",
		Help: "Workers currently executing a job pipeline.",
	})
)
