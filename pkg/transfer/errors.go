package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrManagerFatal is wrapped by every ManagerError. A manager fault is
	// unrecoverable for the engine that owns the multiplexer.
	ErrManagerFatal = errors.New("transfer manager fault")

	// ErrTransferFailed is wrapped by every per-transfer Error.
	ErrTransferFailed = errors.New("transfer failed")
)

// ManagerError is returned when the multiplexer reports an unexpected
// manager-level status.
type ManagerError struct {
	Code MultiCode
}

// Error implements the error interface.
func (e *ManagerError) Error() string {
	if desc := e.Code.Description(); desc != "" {
		return fmt.Sprintf("transfer manager error: %d (%s): %s", int(e.Code), e.Code, desc)
	}
	return fmt.Sprintf("unexpected transfer manager error: %d", int(e.Code))
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ManagerError) Unwrap() error {
	return ErrManagerFatal
}

// Error describes a single failed transfer. It is attached to the work item
// and never returned from the engine's step function.
type Error struct {
	Code    Code
	Message string

	// Info is the diagnostic snapshot of the handle at completion.
	Info Info
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return ErrTransferFailed
}

// Timeout reports whether the transfer failed because it timed out.
func (e *Error) Timeout() bool {
	return e.Code == CodeTimeout
}

// SetupError builds the Error recorded for an item whose transfer handle
// could not be created.
func SetupError(err error) *Error {
	return &Error{
		Code:    CodeBadRequest,
		Message: fmt.Sprintf("[transfer] %d: %v", int(CodeBadRequest), err),
		Info: Info{
			ErrorCode:    CodeBadRequest,
			ErrorMessage: err.Error(),
		},
	}
}
