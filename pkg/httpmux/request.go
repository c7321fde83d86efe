package httpmux

import (
	"net/http"
	"time"

	"github.com/Sternrassler/rollingbatch/pkg/rollingbatch"
	"github.com/google/uuid"
)

// Request is an HTTP request work item.
//
// The engine owns a Request between admission and finalization; read State,
// Err and Result only when the engine is not executing.
type Request struct {
	// ID correlates log lines and results; NewRequest sets a random UUID.
	ID string

	Method string
	URL    string
	Header http.Header
	Body   []byte

	// Timeout bounds the whole transfer. Zero uses Config.Timeout.
	Timeout time.Duration

	state    rollingbatch.State
	err      error
	response *Response
}

// NewRequest creates a request with a fresh ID and an empty header.
func NewRequest(method, url string) *Request {
	return &Request{
		ID:     uuid.NewString(),
		Method: method,
		URL:    url,
		Header: make(http.Header),
	}
}

// State implements rollingbatch.Item.
func (r *Request) State() rollingbatch.State {
	return r.state
}

// SetState implements rollingbatch.Item. Admission clears any earlier
// outcome so a request can be enqueued again.
func (r *Request) SetState(s rollingbatch.State, err error) {
	if s == rollingbatch.StateActive {
		r.response = nil
	}
	r.state = s
	r.err = err
}

// Result implements rollingbatch.Item.
func (r *Request) Result() (*Response, bool) {
	return r.response, r.response != nil
}

// Err returns the transfer error of a failed request.
func (r *Request) Err() error {
	return r.err
}

// Response is the outcome of a completed transfer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Duration is the time from start to the last body byte.
	Duration time.Duration

	// FromCache is true when the response came from the Redis cache.
	FromCache bool

	// Request is the work item this response belongs to.
	Request *Request
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}
