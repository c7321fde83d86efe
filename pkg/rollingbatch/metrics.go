package rollingbatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the batch engine.
var (
	batchItemsAdmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollingbatch_items_admitted_total",
		Help: "Total number of work items moved from pending to active",
	})

	batchItemsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollingbatch_items_finished_total",
		Help: "Total number of finalized work items by outcome",
	}, []string{"outcome"}) // "complete", "error"

	batchActiveItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rollingbatch_active_items",
		Help: "Number of currently active work items across engines",
	})

	batchManagerFaultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollingbatch_manager_faults_total",
		Help: "Total number of fatal multiplexer statuses by code",
	}, []string{"code"})

	batchWaitErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollingbatch_wait_errors_total",
		Help: "Total number of readiness wait failures",
	})

	batchPollIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rollingbatch_poll_iterations",
		Help:    "Poll loop iterations per Execute call",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	})
)
