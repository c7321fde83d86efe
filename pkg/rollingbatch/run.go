package rollingbatch

import (
	"context"
	"fmt"
	"time"
)

// progressEvery controls how often Run logs progress, in finished items.
const progressEvery = 50

// Run calls Execute until the engine is idle or ctx is done.
// Items added to the pending queue while Run is active are processed too.
func (e *Engine[I, R]) Run(ctx context.Context) error {
	if e.closed {
		return ErrClosed
	}

	start := time.Now()
	before := e.stats
	lastReported := 0

	e.logger.Info().
		Int("pending", e.CountPending()).
		Int("active", e.CountActive()).
		Int("parallelism", e.limit).
		Msg("Starting batch")

	for !e.IsIdle() {
		select {
		case <-ctx.Done():
			e.logger.Warn().
				Int("pending", e.CountPending()).
				Int("active", e.CountActive()).
				Msg("Batch stopped (context cancelled)")
			return ctx.Err()
		default:
		}

		if _, err := e.Execute(); err != nil {
			return fmt.Errorf("execute batch: %w", err)
		}

		finished := e.stats.Completed + e.stats.Failed - before.Completed - before.Failed
		if finished-lastReported >= progressEvery {
			lastReported = finished
			e.logger.Info().
				Int("finished", finished).
				Int("pending", e.CountPending()).
				Int("active", e.CountActive()).
				Msg("Batch progress")
		}
	}

	e.logger.Info().
		Int("completed", e.stats.Completed-before.Completed).
		Int("failed", e.stats.Failed-before.Failed).
		Dur("duration", time.Since(start)).
		Msg("Batch complete")

	return nil
}
