package transfer

import (
	"fmt"
)

// MultiCode is a manager-level status reported by the multiplexer itself.
type MultiCode int

const (
	// MultiCallAgain asks the caller to invoke Perform again right away.
	MultiCallAgain MultiCode = -1

	// MultiOK means the call succeeded.
	MultiOK MultiCode = 0

	// MultiBadHandle means the multiplexer itself is not valid (e.g. closed).
	MultiBadHandle MultiCode = 1

	// MultiBadEasyHandle means a transfer handle is not valid or already in use.
	MultiBadEasyHandle MultiCode = 2

	// MultiOutOfMemory means the multiplexer could not allocate.
	MultiOutOfMemory MultiCode = 3

	// MultiInternalError means the multiplexer hit an internal fault.
	MultiInternalError MultiCode = 4
)

var multiCodes = map[MultiCode][2]string{
	MultiCallAgain:     {"MULTI_CALL_AGAIN", "Call perform again."},
	MultiOK:            {"MULTI_OK", "No error."},
	MultiBadHandle:     {"MULTI_BAD_HANDLE", "The passed-in handle is not a valid multiplexer."},
	MultiBadEasyHandle: {"MULTI_BAD_EASY_HANDLE", "A transfer handle was not valid, or is already in use by this or another multiplexer."},
	MultiOutOfMemory:   {"MULTI_OUT_OF_MEMORY", "The multiplexer ran out of memory."},
	MultiInternalError: {"MULTI_INTERNAL_ERROR", "Internal multiplexer fault."},
}

// String returns the symbolic name of the code.
func (c MultiCode) String() string {
	if desc, ok := multiCodes[c]; ok {
		return desc[0]
	}
	return fmt.Sprintf("MULTI_UNKNOWN(%d)", int(c))
}

// Description returns a human readable explanation of the code.
func (c MultiCode) Description() string {
	if desc, ok := multiCodes[c]; ok {
		return desc[1]
	}
	return ""
}

// CheckMulti returns nil for MultiOK and MultiCallAgain and a *ManagerError
// for anything else.
func CheckMulti(code MultiCode) error {
	if code == MultiOK || code == MultiCallAgain {
		return nil
	}
	return &ManagerError{Code: code}
}

// Code is a per-transfer result reported in a completion Message.
type Code int

const (
	// CodeCallAgain is not a failure; some engines report it for transfers
	// that finished while a step was still in progress.
	CodeCallAgain Code = -1

	// CodeOK means the transfer completed. Protocol-level errors such as an
	// HTTP 500 still complete with CodeOK.
	CodeOK Code = 0

	CodeUnsupportedProtocol Code = 1
	CodeBadRequest          Code = 3
	CodeResolveHost         Code = 6
	CodeConnect             Code = 7
	CodeTimeout             Code = 28
	CodeAborted             Code = 42
	CodeTooManyRedirects    Code = 47
	CodeSend                Code = 55
	CodeRecv                Code = 56
	CodeBodyTooLarge        Code = 63
	CodeUnknown             Code = 99
)

var codes = map[Code][2]string{
	CodeCallAgain:           {"CALL_AGAIN", "Transfer step in progress"},
	CodeOK:                  {"OK", "No error"},
	CodeUnsupportedProtocol: {"UNSUPPORTED_PROTOCOL", "Unsupported protocol"},
	CodeBadRequest:          {"BAD_REQUEST", "Request could not be built"},
	CodeResolveHost:         {"COULDNT_RESOLVE_HOST", "Could not resolve host"},
	CodeConnect:             {"COULDNT_CONNECT", "Could not connect to server"},
	CodeTimeout:             {"OPERATION_TIMEDOUT", "Operation timed out"},
	CodeAborted:             {"ABORTED", "Transfer aborted"},
	CodeTooManyRedirects:    {"TOO_MANY_REDIRECTS", "Number of redirects hit maximum amount"},
	CodeSend:                {"SEND_ERROR", "Failed sending data to the peer"},
	CodeRecv:                {"RECV_ERROR", "Failure when receiving data from the peer"},
	CodeBodyTooLarge:        {"FILESIZE_EXCEEDED", "Maximum body size exceeded"},
	CodeUnknown:             {"UNKNOWN", "Unknown transfer error"},
}

// String returns the symbolic name of the code.
func (c Code) String() string {
	if desc, ok := codes[c]; ok {
		return desc[0]
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(c))
}

// Description returns a human readable explanation of the code.
func (c Code) Description() string {
	if desc, ok := codes[c]; ok {
		return desc[1]
	}
	return codes[CodeUnknown][1]
}

// IsSuccess reports whether code means the transfer did not fail.
func IsSuccess(code Code) bool {
	return code == CodeOK || code == CodeCallAgain
}

// Classify turns a completion code into a transfer error.
// Returns nil for success-equivalent codes.
func Classify(code Code, h Handle) *Error {
	if IsSuccess(code) {
		return nil
	}

	var info Info
	if h != nil {
		info = h.Info()
	}
	if info.ErrorCode == CodeOK {
		info.ErrorCode = code
	}

	msg := info.ErrorMessage
	if msg == "" {
		msg = code.Description()
	}

	return &Error{
		Code:    code,
		Message: fmt.Sprintf("[transfer] %d: %s [url] %s", int(code), msg, info.URL),
		Info:    info,
	}
}
