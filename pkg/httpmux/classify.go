package httpmux

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/Sternrassler/rollingbatch/pkg/transfer"
)

var (
	// errTooManyRedirects is returned by the redirect policy.
	errTooManyRedirects = errors.New("stopped after too many redirects")

	// errBodyTooLarge is reported when a body exceeds Config.MaxBodyBytes.
	errBodyTooLarge = errors.New("response body exceeds limit")
)

// classify maps an error from http.Client.Do or body reading to a transfer
// code. ctx is the transfer context; its state wins over the error text.
func classify(ctx context.Context, err error) transfer.Code {
	if err == nil {
		return transfer.CodeOK
	}

	switch {
	case errors.Is(err, errTooManyRedirects):
		return transfer.CodeTooManyRedirects
	case errors.Is(err, errBodyTooLarge):
		return transfer.CodeBodyTooLarge
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return transfer.CodeTimeout
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return transfer.CodeAborted
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return transfer.CodeResolveHost
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return transfer.CodeTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch opErr.Op {
		case "dial":
			return transfer.CodeConnect
		case "write":
			return transfer.CodeSend
		case "read":
			return transfer.CodeRecv
		}
	}

	// net/http does not export these.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unsupported protocol scheme"):
		return transfer.CodeUnsupportedProtocol
	case strings.Contains(msg, "EOF"), strings.Contains(msg, "connection reset"):
		return transfer.CodeRecv
	}

	return transfer.CodeUnknown
}
