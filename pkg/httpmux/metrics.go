package httpmux

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollingbatch_transfers_total",
		Help: "Finished HTTP transfers by transfer code",
	}, []string{"code"})

	transferDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rollingbatch_transfer_duration_seconds",
		Help:    "HTTP transfer duration in seconds by method",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	transfersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rollingbatch_transfers_running",
		Help: "HTTP transfers currently in flight",
	})
)
