package httpmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/Sternrassler/rollingbatch/pkg/cache"
	"github.com/Sternrassler/rollingbatch/pkg/transfer"
)

// handle is one HTTP transfer. The engine goroutine owns started and
// closed; the outcome fields are written by the transfer goroutine and
// guarded by mu.
type handle struct {
	mux     *Multi
	req     *Request
	hreq    *http.Request
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	started bool
	closed  bool

	mu   sync.Mutex
	code transfer.Code
	info transfer.Info
	resp *Response
}

func newHandle(m *Multi, req *Request) (*handle, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	hreq, err := http.NewRequest(method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for name, values := range req.Header {
		for _, v := range values {
			hreq.Header.Add(name, v)
		}
	}
	if hreq.Header.Get("User-Agent") == "" {
		hreq.Header.Set("User-Agent", m.config.UserAgent)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = m.config.Timeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &handle{
		mux:     m,
		req:     req,
		hreq:    hreq,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		info:    transfer.Info{URL: hreq.URL.String()},
	}, nil
}

// Finish implements transfer.Handle.
func (h *handle) Finish() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.resp != nil && transfer.IsSuccess(h.code) {
		h.req.response = h.resp
	}
}

// Info implements transfer.Handle.
func (h *handle) Info() transfer.Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.info
}

func (h *handle) result() transfer.Code {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.code
}

// Close implements transfer.Handle.
func (h *handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.cancel()
	return nil
}

// run performs the transfer. It is called on the transfer goroutine.
func (h *handle) run() {
	ctx, cancel := context.WithTimeout(h.ctx, h.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		h.mu.Lock()
		h.info.Duration = elapsed
		if h.resp != nil {
			h.resp.Duration = elapsed
		}
		code := h.code
		h.mu.Unlock()

		transfersTotal.WithLabelValues(code.String()).Inc()
		transferDuration.WithLabelValues(h.hreq.Method).Observe(elapsed.Seconds())
	}()

	url := h.hreq.URL.String()
	logger := h.mux.logger.With().
		Str("request_id", h.req.ID).
		Str("url", url).
		Logger()

	key, cacheable := h.cacheKey(url)
	if cacheable {
		entry, err := h.mux.cache.Get(ctx, key)
		switch {
		case err == nil:
			h.succeed(entry.StatusCode, entry.Header, entry.Body, true)
			logger.Debug().Dur("age", entry.Age()).Msg("Cache hit")
			return
		case !errors.Is(err, cache.ErrCacheMiss):
			logger.Warn().Err(err).Msg("Cache get error")
		}
	}

	resp, err := h.mux.client.Do(h.hreq.WithContext(ctx))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	defer resp.Body.Close()

	limit := h.mux.config.MaxBodyBytes
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		h.failWithStatus(ctx, err, resp.StatusCode)
		return
	}
	if int64(len(body)) > limit {
		h.failWithStatus(ctx, fmt.Errorf("%w: more than %d bytes", errBodyTooLarge, limit), resp.StatusCode)
		return
	}

	h.succeed(resp.StatusCode, resp.Header, body, false)

	if cacheable && cache.Cacheable(h.hreq.Method, resp.StatusCode, resp.Header) {
		entry := cache.NewEntry(resp.StatusCode, resp.Header, body)
		switch err := h.mux.cache.Set(ctx, key, entry); {
		case errors.Is(err, cache.ErrEntryTooLarge):
			logger.Debug().Err(err).Msg("Response too large to cache")
		case err != nil:
			logger.Warn().Err(err).Msg("Failed to cache response")
		default:
			logger.Debug().Dur("ttl", entry.TTL()).Msg("Cached response")
		}
	}
}

// cacheKey returns the cache key when the response cache applies.
// Requests carrying credentials bypass the shared cache in both directions.
func (h *handle) cacheKey(url string) (cache.Key, bool) {
	if h.mux.cache == nil || h.hreq.Method != http.MethodGet {
		return cache.Key{}, false
	}
	if h.hreq.Header.Get("Authorization") != "" || h.hreq.Header.Get("Cookie") != "" {
		return cache.Key{}, false
	}
	key, err := cache.KeyFor(h.hreq.Method, url)
	if err != nil {
		return cache.Key{}, false
	}
	return key, true
}

func (h *handle) succeed(status int, header http.Header, body []byte, fromCache bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.code = transfer.CodeOK
	h.info.StatusCode = status
	h.info.BytesReceived = int64(len(body))
	h.info.FromCache = fromCache
	h.resp = &Response{
		StatusCode: status,
		Header:     header,
		Body:       body,
		FromCache:  fromCache,
		Request:    h.req,
	}
}

func (h *handle) fail(ctx context.Context, err error) {
	h.failWithStatus(ctx, err, 0)
}

// failWithStatus records a failure after the status line was received.
func (h *handle) failWithStatus(ctx context.Context, err error, status int) {
	code := classify(ctx, err)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.code = code
	h.info.StatusCode = status
	h.info.ErrorCode = code
	h.info.ErrorMessage = err.Error()
	h.resp = nil
}
