package rollingbatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/rollingbatch/pkg/queue"
	"github.com/Sternrassler/rollingbatch/pkg/transfer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Stats counts items that went through an engine.
type Stats struct {
	Admitted  int
	Completed int
	Failed    int
}

// Engine turns a FIFO of pending work items into a capped set of concurrent
// transfers on a single multiplexer and collects the results.
//
// An Engine is driven by repeated calls to Execute from one goroutine.
// None of its methods are safe for concurrent use.
type Engine[I Item[R], R any] struct {
	mux      transfer.Multiplexer[I]
	pending  queue.Queue[I]
	results  queue.Queue[R]
	failures queue.Queue[I]
	handles  *registry[I]
	limit    int
	config   Config
	stats    Stats
	logger   zerolog.Logger
	closed   bool

	// held is a pending item whose previous run is still active. It is
	// admitted before anything else in the pending queue.
	held    I
	hasHeld bool
}

// New creates an engine that owns mux until Close.
func New[I Item[R], R any](mux transfer.Multiplexer[I], cfg Config) (*Engine[I, R], error) {
	if mux == nil {
		return nil, fmt.Errorf("%w: multiplexer is required", ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.With().Str("component", "rollingbatch").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	e := &Engine[I, R]{
		mux:      mux,
		pending:  queue.NewFIFO[I](),
		results:  queue.NewFIFO[R](),
		failures: queue.NewFIFO[I](),
		limit:    cfg.Parallelism,
		config:   cfg,
		logger:   logger,
	}
	e.handles = newRegistry[I](func(h transfer.Handle) {
		if code := e.mux.Remove(h); code != transfer.MultiOK {
			e.logger.Debug().Str("code", code.String()).Msg("Remove handle from multiplexer")
		}
	})

	return e, nil
}

// SetParallelismLimit sets the maximum number of active items.
// Values below 1 are rejected with ErrInvalidArgument.
func (e *Engine[I, R]) SetParallelismLimit(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: parallelism has to be > 0 (got %d)", ErrInvalidArgument, n)
	}
	e.limit = n
	return nil
}

// RemoveParallelismLimit lets every pending item become active at once.
func (e *Engine[I, R]) RemoveParallelismLimit() {
	e.limit = Unlimited
}

// ParallelismLimit returns the current cap; Unlimited (0) means no cap.
func (e *Engine[I, R]) ParallelismLimit() int {
	return e.limit
}

// Enqueue appends items to the pending queue.
func (e *Engine[I, R]) Enqueue(items ...I) {
	for _, item := range items {
		e.pending.Add(item)
	}
}

// Pending returns the queue of items waiting for admission.
func (e *Engine[I, R]) Pending() queue.Queue[I] {
	return e.pending
}

// Results returns the queue of produced results.
func (e *Engine[I, R]) Results() queue.Queue[R] {
	return e.results
}

// Failures returns the queue of items that ended in StateError.
func (e *Engine[I, R]) Failures() queue.Queue[I] {
	return e.failures
}

// SetPendingQueue replaces the pending queue.
func (e *Engine[I, R]) SetPendingQueue(q queue.Queue[I]) error {
	if q == nil {
		return fmt.Errorf("%w: pending queue is nil", ErrInvalidArgument)
	}
	e.pending = q
	return nil
}

// SetResultQueue replaces the result queue. Pass queue.Null to discard results.
func (e *Engine[I, R]) SetResultQueue(q queue.Queue[R]) error {
	if q == nil {
		return fmt.Errorf("%w: result queue is nil", ErrInvalidArgument)
	}
	e.results = q
	return nil
}

// SetFailureQueue replaces the failure queue. Pass queue.Null to discard failed items.
func (e *Engine[I, R]) SetFailureQueue(q queue.Queue[I]) error {
	if q == nil {
		return fmt.Errorf("%w: failure queue is nil", ErrInvalidArgument)
	}
	e.failures = q
	return nil
}

// CountActive returns the number of active items.
func (e *Engine[I, R]) CountActive() int {
	return e.handles.Count()
}

// CountPending returns the number of items waiting for admission.
func (e *Engine[I, R]) CountPending() int {
	if e.hasHeld {
		return e.pending.Count() + 1
	}
	return e.pending.Count()
}

// IsIdle reports whether no item is active or pending.
// Unread results do not keep the engine busy.
func (e *Engine[I, R]) IsIdle() bool {
	return e.CountActive() == 0 && !e.hasHeld && e.pending.IsEmpty()
}

// Saturated reports whether the parallelism cap is reached.
func (e *Engine[I, R]) Saturated() bool {
	return e.limit != Unlimited && e.CountActive() >= e.limit
}

// Stats returns item counters since construction.
func (e *Engine[I, R]) Stats() Stats {
	return e.stats
}

// Execute admits pending items up to the cap and advances active transfers.
// It returns true while the cap is saturated. It is a bounded step, not a
// completion signal: call it in a loop until IsIdle.
//
// A non-nil error is a manager-level fault (wrapping transfer.ErrManagerFatal)
// or ErrClosed. Failed transfers are never returned here; they are recorded
// on the item and pushed to the failure queue.
func (e *Engine[I, R]) Execute() (bool, error) {
	if e.closed {
		return false, ErrClosed
	}

	if err := e.admit(); err != nil {
		return false, err
	}

	if e.CountActive() > 0 {
		if err := e.perform(); err != nil {
			return false, err
		}
	}

	return e.Saturated(), nil
}

// Close releases every registered handle and the multiplexer. Items still
// active are failed with an aborted transfer error.
func (e *Engine[I, R]) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	for _, item := range e.handles.Items() {
		h, _ := e.handles.Handle(item)
		terr := transfer.Classify(transfer.CodeAborted, h)
		e.release(item)
		e.fail(item, terr)
	}

	if err := e.mux.Close(); err != nil {
		return fmt.Errorf("close multiplexer: %w", err)
	}
	return nil
}

// admit starts as many pending items as the cap allows.
func (e *Engine[I, R]) admit() error {
	for e.limit == Unlimited || e.CountActive() < e.limit {
		item, ok := e.nextPending()
		if !ok {
			return nil
		}

		// An item enqueued twice runs once at a time.
		if _, busy := e.handles.Handle(item); busy {
			e.held, e.hasHeld = item, true
			return nil
		}

		item.SetState(StateActive, nil)

		h, err := e.mux.NewHandle(item)
		if err != nil {
			e.countAdmitted()
			e.fail(item, transfer.SetupError(err))
			e.collect(item)
			continue
		}

		e.handles.Register(item, h)
		batchActiveItems.Inc()

		if err := transfer.CheckMulti(e.mux.Add(h)); err != nil {
			// No transfer runs for the item; it returns to the head of the
			// pending queue.
			e.release(item)
			item.SetState(StatePending, nil)
			e.held, e.hasHeld = item, true
			return e.fatal(err)
		}
		e.countAdmitted()

		e.logger.Debug().
			Int("active", e.CountActive()).
			Int("pending", e.CountPending()).
			Msg("Item admitted")
	}
	return nil
}

func (e *Engine[I, R]) nextPending() (I, bool) {
	if e.hasHeld {
		item := e.held
		var zero I
		e.held, e.hasHeld = zero, false
		return item, true
	}

	item, err := e.pending.Next()
	if err != nil {
		return item, false
	}
	return item, true
}

// perform polls the multiplexer until a slot frees up or the iteration
// bound is hit. The first wait is short because transfers often finish
// between calls; later waits are longer to avoid spinning.
func (e *Engine[I, R]) perform() error {
	wait := e.config.InitialWait
	iterations := 0
	defer func() {
		batchPollIterations.Observe(float64(iterations))
	}()

	for iterations < e.config.MaxIterations {
		iterations++

		running, err := e.step()
		if err != nil {
			return err
		}

		e.drain()

		if running > 0 {
			if err := e.mux.Wait(wait); err != nil {
				batchWaitErrorsTotal.Inc()
				e.logger.Debug().Err(err).Msg("Readiness wait failed, backing off")
				time.Sleep(e.config.ErrorSleep)
			}
		}
		wait = e.config.WaitTimeout

		if !e.Saturated() {
			break
		}
	}
	return nil
}

// step calls Perform until the multiplexer stops asking to be called again.
func (e *Engine[I, R]) step() (int, error) {
	for {
		running, code := e.mux.Perform()
		if code == transfer.MultiCallAgain {
			continue
		}
		if err := transfer.CheckMulti(code); err != nil {
			return 0, e.fatal(err)
		}
		return running, nil
	}
}

// drain processes all pending completion messages.
func (e *Engine[I, R]) drain() {
	for {
		msg, ok := e.mux.InfoRead()
		if !ok {
			return
		}

		item, found := e.handles.Resolve(msg.Handle)
		if !found {
			e.logger.Warn().Str("code", msg.Code.String()).Msg("Completion for unknown handle")
			e.mux.Remove(msg.Handle)
			_ = msg.Handle.Close()
			continue
		}

		e.complete(item, msg)
	}
}

// complete finalizes one finished transfer.
func (e *Engine[I, R]) complete(item I, msg transfer.Message) {
	msg.Handle.Finish()
	terr := transfer.Classify(msg.Code, msg.Handle)

	// The handle goes away on success and failure alike.
	e.release(item)

	if terr != nil {
		e.fail(item, terr)
	} else {
		item.SetState(StateComplete, nil)
		e.stats.Completed++
		batchItemsFinishedTotal.WithLabelValues("complete").Inc()

		info := msg.Handle.Info()
		e.logger.Debug().
			Str("url", info.URL).
			Int("status_code", info.StatusCode).
			Dur("duration", info.Duration).
			Bool("cache_hit", info.FromCache).
			Msg("Transfer complete")
	}

	e.collect(item)
}

// fail moves item to StateError and records it on the failure queue.
func (e *Engine[I, R]) fail(item I, terr *transfer.Error) {
	item.SetState(StateError, terr)
	e.failures.Add(item)
	e.stats.Failed++
	batchItemsFinishedTotal.WithLabelValues("error").Inc()

	e.logger.Warn().
		Err(terr).
		Str("error_class", terr.Code.String()).
		Str("url", terr.Info.URL).
		Msg("Transfer failed")
}

// collect pushes the item's result, if it produced one.
func (e *Engine[I, R]) collect(item I) {
	if result, ok := item.Result(); ok {
		e.results.Add(result)
	}
}

func (e *Engine[I, R]) countAdmitted() {
	e.stats.Admitted++
	batchItemsAdmittedTotal.Inc()
}

func (e *Engine[I, R]) release(item I) {
	if _, ok := e.handles.Handle(item); !ok {
		return
	}
	if err := e.handles.Release(item); err != nil {
		e.logger.Debug().Err(err).Msg("Close transfer handle")
	}
	batchActiveItems.Dec()
}

func (e *Engine[I, R]) fatal(err error) error {
	var mgrErr *transfer.ManagerError
	code := "unknown"
	if errors.As(err, &mgrErr) {
		code = mgrErr.Code.String()
	}
	batchManagerFaultsTotal.WithLabelValues(code).Inc()

	e.logger.Error().Err(err).Msg("Transfer manager fault")
	return err
}
