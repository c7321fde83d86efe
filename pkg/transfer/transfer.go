// Package transfer defines the contract between the rolling batch engine and
// a non-blocking transfer engine (the multiplexer), together with the status
// codes both sides exchange and their classification into errors.
package transfer

import (
	"time"
)

// Handle binds one work item to one native transfer resource.
// A handle is created per admission and closed exactly once.
type Handle interface {
	// Finish copies the transfer outcome (status, headers, body, timing)
	// onto the work item the handle was created for.
	Finish()

	// Info returns post-completion diagnostics. It stays valid after Close.
	Info() Info

	// Close releases the native resource. Calling Close twice is a no-op.
	Close() error
}

// Info holds per-transfer diagnostics.
type Info struct {
	// URL is the effective URL of the transfer.
	URL string

	// StatusCode is the protocol status (e.g. HTTP status), 0 if none was received.
	StatusCode int

	// Duration is the total time from submission to completion.
	Duration time.Duration

	// BytesReceived is the size of the received body.
	BytesReceived int64

	// ErrorCode is the transfer result code.
	ErrorCode Code

	// ErrorMessage is a human readable description of ErrorCode.
	ErrorMessage string

	// FromCache is true when the response was served from a cache layer.
	FromCache bool
}

// Message is a completion notification read from the multiplexer.
type Message struct {
	Handle Handle
	Code   Code
}

// Multiplexer progresses many transfers without blocking the caller.
//
// Implementations are driven from a single goroutine: the engine calls
// Perform, drains InfoRead, and blocks at most for the Wait timeout.
type Multiplexer[I any] interface {
	// NewHandle creates a transfer handle for item. The handle is not
	// started until it is added.
	NewHandle(item I) (Handle, error)

	// Add submits a handle.
	Add(h Handle) MultiCode

	// Remove detaches a handle, aborting it if it is still running.
	Remove(h Handle) MultiCode

	// Perform advances all submitted transfers without blocking and
	// reports how many are still running. MultiCallAgain asks the caller
	// to call Perform again immediately.
	Perform() (running int, code MultiCode)

	// InfoRead pops the next completion notification, if any.
	InfoRead() (Message, bool)

	// Wait blocks until a transfer needs attention or timeout elapses.
	Wait(timeout time.Duration) error

	// Close aborts all running transfers and releases the multiplexer.
	Close() error
}
