// Package metrics exposes the Prometheus registry shared by all rollingbatch
// packages. Metrics are defined next to the code that updates them
// (rollingbatch, httpmux, cache) and registered via promauto.
//
// This package documents the catalogue and serves it over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registry all metrics register with.
var Registry = prometheus.DefaultRegisterer

// Handler returns an HTTP handler serving the default gatherer.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Engine Metrics (pkg/rollingbatch):
//   - rollingbatch_items_admitted_total (Counter): Items moved from pending to active
//   - rollingbatch_items_finished_total{outcome} (Counter): Finalized items by outcome (complete, error)
//   - rollingbatch_active_items (Gauge): Items with a registered transfer handle
//   - rollingbatch_manager_faults_total{code} (Counter): Fatal multiplexer statuses
//   - rollingbatch_wait_errors_total (Counter): Failed readiness waits
//   - rollingbatch_poll_iterations (Histogram): Poll iterations per Execute call
//
// Transfer Metrics (pkg/httpmux):
//   - rollingbatch_transfers_total{code} (Counter): Finished transfers by transfer code
//   - rollingbatch_transfer_duration_seconds{method} (Histogram): Transfer duration by HTTP method
//   - rollingbatch_transfers_running (Gauge): Transfers currently in flight
//
// Cache Metrics (pkg/cache):
//   - rollingbatch_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - rollingbatch_cache_misses_total (Counter): Cache misses
//   - rollingbatch_cache_size_bytes{layer="redis"} (Gauge): Encoded bytes stored in the cache
//   - rollingbatch_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Failure Rate
//   rate(rollingbatch_items_finished_total{outcome="error"}[5m]) /
//   rate(rollingbatch_items_finished_total[5m])
//
//   # Saturation
//   rollingbatch_active_items
//
//   # P95 Transfer Latency
//   histogram_quantile(0.95, rate(rollingbatch_transfer_duration_seconds_bucket[5m]))
//
//   # Cache Hit Rate
//   sum(rate(rollingbatch_cache_hits_total[5m])) /
//   (sum(rate(rollingbatch_cache_hits_total[5m])) + sum(rate(rollingbatch_cache_misses_total[5m])))
