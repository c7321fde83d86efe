// Package rollingbatch runs work items against a non-blocking transfer
// multiplexer with a cap on how many are in flight at once.
//
// Items wait in a FIFO pending queue. Each call to Execute admits as many
// items as the parallelism limit allows, hands them to the multiplexer,
// polls for completions and finalizes finished items: successful results go
// to the result queue, failed items go to the failure queue and carry a
// *transfer.Error.
//
// # Basic Usage
//
//	mux, err := httpmux.NewMulti(httpmux.DefaultConfig("MyApp/1.0 (ops@example.com)"))
//	if err != nil {
//		return err
//	}
//	engine, err := rollingbatch.New[*httpmux.Request, *httpmux.Response](mux, rollingbatch.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
//
//	engine.Enqueue(httpmux.NewRequest(http.MethodGet, "https://example.com/a"))
//
//	for !engine.IsIdle() {
//		if _, err := engine.Execute(); err != nil {
//			return err // manager-level fault
//		}
//	}
//
//	for !engine.Results().IsEmpty() {
//		resp, _ := engine.Results().Next()
//		fmt.Println(resp.StatusCode)
//	}
//
// # Polling
//
// Execute never blocks indefinitely. A single call runs at most
// Config.MaxIterations poll iterations and keeps polling only while the cap
// is saturated. The first readiness wait of a call uses Config.InitialWait,
// later ones Config.WaitTimeout. A failing wait is followed by a sleep of
// Config.ErrorSleep.
//
// # Parallelism
//
// SetParallelismLimit accepts values >= 1 only. An uncapped engine is built
// with Config.Parallelism = Unlimited or by calling RemoveParallelismLimit.
//
// # Metrics
//
//   - rollingbatch_items_admitted_total - Items moved to active
//   - rollingbatch_items_finished_total{outcome} - Finalized items
//   - rollingbatch_active_items - Active items
//   - rollingbatch_manager_faults_total{code} - Fatal multiplexer statuses
//   - rollingbatch_wait_errors_total - Readiness wait failures
//   - rollingbatch_poll_iterations - Poll iterations per Execute call
package rollingbatch
