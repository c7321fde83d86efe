package rollingbatch

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Unlimited disables the parallelism cap. It can only be set at
// construction time or through Engine.RemoveParallelismLimit.
const Unlimited = 0

// Config holds the engine configuration.
type Config struct {
	// Parallelism is the maximum number of active items. Unlimited (0)
	// disables the cap.
	Parallelism int

	// MaxIterations bounds the poll loop of a single Execute call.
	MaxIterations int

	// InitialWait is the readiness timeout of the first poll iteration.
	InitialWait time.Duration

	// WaitTimeout is the readiness timeout of later poll iterations.
	WaitTimeout time.Duration

	// ErrorSleep is slept when the readiness wait itself fails.
	ErrorSleep time.Duration

	// Logger is used for engine logs. The zero value falls back to the
	// global logger with component "rollingbatch".
	Logger *zerolog.Logger
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Parallelism:   3,
		MaxIterations: 100,
		InitialWait:   500 * time.Microsecond,
		WaitTimeout:   50 * time.Millisecond,
		ErrorSleep:    150 * time.Microsecond,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Parallelism < 0 {
		return fmt.Errorf("%w: parallelism must be >= 0 (got %d)", ErrInvalidArgument, c.Parallelism)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max_iterations must be >= 1 (got %d)", ErrInvalidArgument, c.MaxIterations)
	}
	if c.InitialWait <= 0 || c.WaitTimeout <= 0 {
		return fmt.Errorf("%w: wait timeouts must be > 0", ErrInvalidArgument)
	}
	if c.ErrorSleep < 0 {
		return fmt.Errorf("%w: error_sleep must be >= 0", ErrInvalidArgument)
	}
	return nil
}
