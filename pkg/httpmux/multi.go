package httpmux

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Sternrassler/rollingbatch/pkg/cache"
	"github.com/Sternrassler/rollingbatch/pkg/rollingbatch"
	"github.com/Sternrassler/rollingbatch/pkg/transfer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrClosed is returned by Wait after Close.
var ErrClosed = errors.New("httpmux: multiplexer closed")

// Config holds the multiplexer configuration.
type Config struct {
	// UserAgent is sent with every request that does not set its own.
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Timeout bounds a transfer whose Request.Timeout is zero.
	Timeout time.Duration

	// MaxBodyBytes caps the response body; larger bodies fail with
	// transfer.CodeBodyTooLarge.
	MaxBodyBytes int64

	// MaxRedirects is the number of redirects followed before failing with
	// transfer.CodeTooManyRedirects.
	MaxRedirects int

	// Cache enables the Redis response cache for GET requests (optional).
	Cache *cache.Manager

	// Transport overrides the HTTP transport (optional).
	Transport http.RoundTripper

	// Logger defaults to the global logger with component=httpmux.
	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent:    userAgent,
		Timeout:      30 * time.Second,
		MaxBodyBytes: 10 << 20,
		MaxRedirects: 10,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.UserAgent == "" {
		return fmt.Errorf("user-agent is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", c.Timeout)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be > 0 (got %d)", c.MaxBodyBytes)
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("max_redirects must be >= 0 (got %d)", c.MaxRedirects)
	}
	return nil
}

// Multi runs HTTP transfers concurrently and reports completions in the
// order they finish. It implements transfer.Multiplexer[*Request].
//
// Perform, InfoRead, Wait, Add, Remove and Close are meant to be called
// from one goroutine; transfer goroutines only touch the completion list.
type Multi struct {
	client *http.Client
	cache  *cache.Manager
	config Config
	logger zerolog.Logger

	// owned holds every added handle until it is removed.
	owned    map[*handle]struct{}
	messages []transfer.Message
	wg       sync.WaitGroup
	closed   bool

	mu        sync.Mutex
	completed []*handle
	inflight  int
	notify    chan struct{}
}

// NewMulti creates a multiplexer.
func NewMulti(cfg Config) (*Multi, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.With().Str("component", "httpmux").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	maxRedirects := cfg.MaxRedirects
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}

	return &Multi{
		client: client,
		cache:  cfg.Cache,
		config: cfg,
		logger: logger,
		owned:  make(map[*handle]struct{}),
		notify: make(chan struct{}, 1),
	}, nil
}

// NewBatch creates an engine driving HTTP requests through a new Multi.
func NewBatch(mcfg Config, bcfg rollingbatch.Config) (*rollingbatch.Engine[*Request, *Response], error) {
	mux, err := NewMulti(mcfg)
	if err != nil {
		return nil, fmt.Errorf("create multiplexer: %w", err)
	}
	engine, err := rollingbatch.New[*Request, *Response](mux, bcfg)
	if err != nil {
		_ = mux.Close()
		return nil, err
	}
	return engine, nil
}

// NewHandle validates req and prepares its transfer.
func (m *Multi) NewHandle(req *Request) (transfer.Handle, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	return newHandle(m, req)
}

// Add starts the transfer of h.
func (m *Multi) Add(th transfer.Handle) transfer.MultiCode {
	if m.closed {
		return transfer.MultiBadHandle
	}
	h, ok := th.(*handle)
	if !ok || h == nil || h.mux != m || h.started || h.closed {
		return transfer.MultiBadEasyHandle
	}

	h.started = true
	m.owned[h] = struct{}{}

	m.mu.Lock()
	m.inflight++
	m.mu.Unlock()
	transfersRunning.Inc()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		h.run()
		m.complete(h)
	}()

	return transfer.MultiOK
}

// Remove detaches h and cancels it if it is still running.
func (m *Multi) Remove(th transfer.Handle) transfer.MultiCode {
	h, ok := th.(*handle)
	if !ok || h == nil {
		return transfer.MultiBadEasyHandle
	}
	if _, owned := m.owned[h]; !owned {
		return transfer.MultiBadEasyHandle
	}

	delete(m.owned, h)
	h.cancel()
	return transfer.MultiOK
}

// Perform moves finished transfers to the message queue and returns the
// number of transfers still running.
func (m *Multi) Perform() (int, transfer.MultiCode) {
	if m.closed {
		return 0, transfer.MultiBadHandle
	}

	m.mu.Lock()
	done := m.completed
	m.completed = nil
	running := m.inflight
	m.mu.Unlock()

	for _, h := range done {
		// Removed before completion: nobody is waiting for it.
		if _, owned := m.owned[h]; !owned {
			continue
		}
		m.messages = append(m.messages, transfer.Message{Handle: h, Code: h.result()})
	}

	return running, transfer.MultiOK
}

// InfoRead pops the next completion message.
func (m *Multi) InfoRead() (transfer.Message, bool) {
	if len(m.messages) == 0 {
		return transfer.Message{}, false
	}
	msg := m.messages[0]
	m.messages[0] = transfer.Message{}
	m.messages = m.messages[1:]
	return msg, true
}

// Wait blocks until a transfer finishes or timeout elapses.
func (m *Multi) Wait(timeout time.Duration) error {
	if m.closed {
		return ErrClosed
	}

	m.mu.Lock()
	ready := len(m.completed) > 0
	m.mu.Unlock()
	if ready {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-m.notify:
	case <-timer.C:
	}
	return nil
}

// Close cancels all running transfers and waits for their goroutines.
func (m *Multi) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	for h := range m.owned {
		h.cancel()
		delete(m.owned, h)
	}
	m.wg.Wait()
	m.messages = nil

	m.logger.Debug().Msg("Multiplexer closed")
	return nil
}

// complete is called on the transfer goroutine once h is done.
func (m *Multi) complete(h *handle) {
	m.mu.Lock()
	m.completed = append(m.completed, h)
	m.inflight--
	m.mu.Unlock()
	transfersRunning.Dec()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}
