// Package httpmux implements transfer.Multiplexer over net/http so the
// rolling batch engine can drive ordinary HTTP requests.
//
// Every added handle runs its request on its own goroutine. Completions are
// collected under a lock and surfaced by Perform and InfoRead; Wait blocks
// on a notification channel for at most the given timeout. Go errors are
// mapped onto transfer codes (timeout, connect, resolve, send, receive,
// aborted, too many redirects, body too large).
//
// HTTP error statuses are not transfer failures: a 500 completes with
// transfer.CodeOK and the status is reported on the Response.
//
// # Basic Usage
//
//	engine, err := httpmux.NewBatch(
//		httpmux.DefaultConfig("MyApp/1.0 (ops@example.com)"),
//		rollingbatch.DefaultConfig(),
//	)
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
//
//	engine.Enqueue(httpmux.NewRequest(http.MethodGet, "https://example.com/"))
//	if err := engine.Run(ctx); err != nil {
//		return err
//	}
//
// # Caching
//
// With Config.Cache set, GET requests are looked up in Redis before dialing
// and cacheable responses are stored afterwards. Cached responses have
// FromCache set and report a transfer duration of the lookup only. Requests
// carrying Authorization or Cookie headers never use the cache.
//
// # Metrics
//
//   - rollingbatch_transfers_total{code} - Finished transfers by code
//   - rollingbatch_transfer_duration_seconds{method} - Transfer duration
//   - rollingbatch_transfers_running - Transfers in flight
package httpmux
