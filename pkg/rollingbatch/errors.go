package rollingbatch

import (
	"errors"
)

// Common errors returned by the engine.
var (
	// ErrInvalidArgument is returned for invalid configuration input.
	// The engine is not modified when it is returned.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed is returned when the engine is used after Close.
	ErrClosed = errors.New("engine closed")
)
