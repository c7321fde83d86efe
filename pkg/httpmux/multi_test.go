package httpmux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/rollingbatch/internal/testutil"
	"github.com/Sternrassler/rollingbatch/pkg/rollingbatch"
	"github.com/Sternrassler/rollingbatch/pkg/transfer"
	"github.com/rs/zerolog"
)

const testUserAgent = "rollingbatch-test/1.0 (test@example.com)"

func testMultiConfig() Config {
	cfg := DefaultConfig(testUserAgent)
	logger := zerolog.Nop()
	cfg.Logger = &logger
	return cfg
}

func testBatchConfig() rollingbatch.Config {
	cfg := rollingbatch.DefaultConfig()
	logger := zerolog.Nop()
	cfg.Logger = &logger
	return cfg
}

func newTestBatch(t *testing.T, cfg Config) *rollingbatch.Engine[*Request, *Response] {
	t.Helper()

	engine, err := NewBatch(cfg, testBatchConfig())
	if err != nil {
		t.Fatalf("NewBatch() error = %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

func runBatch(t *testing.T, engine *rollingbatch.Engine[*Request, *Response]) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := engine.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func drain(engine *rollingbatch.Engine[*Request, *Response]) []*Response {
	var out []*Response
	for !engine.Results().IsEmpty() {
		resp, _ := engine.Results().Next()
		out = append(out, resp)
	}
	return out
}

func TestNewMulti_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing user agent", func(c *Config) { c.UserAgent = "" }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"zero body limit", func(c *Config) { c.MaxBodyBytes = 0 }},
		{"negative redirects", func(c *Config) { c.MaxRedirects = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testMultiConfig()
			tt.mutate(&cfg)
			if _, err := NewMulti(cfg); err == nil {
				t.Error("NewMulti() should fail")
			}
		})
	}
}

func TestBatch_SingleRequest(t *testing.T) {
	mock := testutil.NewMockServer()
	defer mock.Close()

	engine := newTestBatch(t, testMultiConfig())
	req := NewRequest(http.MethodGet, mock.URL())
	engine.Pending().Add(req)

	if engine.Pending().Count() != 1 || engine.Results().Count() != 0 {
		t.Fatalf("pending=%d results=%d before run", engine.Pending().Count(), engine.Results().Count())
	}

	runBatch(t, engine)

	results := drain(engine)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	resp := results[0]
	if resp.Text() != testutil.DefaultContent {
		t.Errorf("body = %q, want %q", resp.Text(), testutil.DefaultContent)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if resp.Request != req || req.State() != rollingbatch.StateComplete || req.Err() != nil {
		t.Errorf("request state=%v err=%v", req.State(), req.Err())
	}
	if resp.FromCache {
		t.Error("FromCache should be false without a cache")
	}
	if resp.Duration <= 0 {
		t.Error("Duration should be set")
	}
	if ua := mock.LastRequestHeader().Get("User-Agent"); ua != testUserAgent {
		t.Errorf("User-Agent = %q, want %q", ua, testUserAgent)
	}
}

func TestBatch_TwoRequests(t *testing.T) {
	mock := testutil.NewMockServer()
	defer mock.Close()

	engine := newTestBatch(t, testMultiConfig())
	engine.Enqueue(
		NewRequest(http.MethodGet, mock.URL()+"/?content=foo"),
		NewRequest(http.MethodGet, mock.URL()+"/?content=bar"),
	)

	runBatch(t, engine)

	var bodies []string
	for _, resp := range drain(engine) {
		bodies = append(bodies, resp.Text())
	}
	sort.Strings(bodies)
	if strings.Join(bodies, ",") != "bar,foo" {
		t.Errorf("bodies = %v, want one foo and one bar", bodies)
	}
}

func TestBatch_ManyRequestsRespectLimit(t *testing.T) {
	mock := testutil.NewMockServer()
	defer mock.Close()

	engine := newTestBatch(t, testMultiConfig())
	if err := engine.SetParallelismLimit(4); err != nil {
		t.Fatalf("SetParallelismLimit() error = %v", err)
	}

	var want []string
	for c := 'a'; c <= 'z'; c++ {
		want = append(want, string(c))
		engine.Enqueue(NewRequest(http.MethodGet, fmt.Sprintf("%s/?sleep=0.02&content=%c", mock.URL(), c)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for !engine.IsIdle() {
		if ctx.Err() != nil {
			t.Fatal("batch did not finish in time")
		}
		if _, err := engine.Execute(); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if engine.CountActive() > 4 {
			t.Fatalf("CountActive() = %d, want <= 4", engine.CountActive())
		}
		stats := engine.Stats()
		if total := engine.CountPending() + engine.CountActive() + stats.Completed + stats.Failed; total != len(want) {
			t.Fatalf("conservation broken: %d != %d", total, len(want))
		}
	}

	var got []string
	for _, resp := range drain(engine) {
		got = append(got, resp.Text())
	}
	sort.Strings(got)
	if strings.Join(got, "") != strings.Join(want, "") {
		t.Errorf("bodies = %v, want %v", got, want)
	}
	if mock.MaxInFlight() > 4 {
		t.Errorf("server saw %d concurrent requests, want <= 4", mock.MaxInFlight())
	}
}

func TestBatch_TimeoutDoesNotStopSibling(t *testing.T) {
	mock := testutil.NewMockServer()
	defer mock.Close()

	engine := newTestBatch(t, testMultiConfig())

	slow := NewRequest(http.MethodGet, mock.URL()+"/?sleep=3&content=foo")
	slow.Timeout = 100 * time.Millisecond
	fast := NewRequest(http.MethodGet, mock.URL()+"/?content=bar")
	engine.Enqueue(slow, fast)

	runBatch(t, engine)

	if slow.State() != rollingbatch.StateError {
		t.Fatalf("slow state = %v, want error", slow.State())
	}
	var terr *transfer.Error
	if !errors.As(slow.Err(), &terr) {
		t.Fatalf("slow error = %v, want *transfer.Error", slow.Err())
	}
	if !terr.Timeout() {
		t.Errorf("error code = %v, want timeout", terr.Code)
	}
	if !strings.HasPrefix(terr.Error(), "[transfer] 28: ") || !strings.Contains(terr.Error(), "[url] "+slow.URL) {
		t.Errorf("error message = %q", terr.Error())
	}
	if _, ok := slow.Result(); ok {
		t.Error("timed out request should have no result")
	}

	results := drain(engine)
	if len(results) != 1 || results[0].Text() != "bar" {
		t.Errorf("results = %v, want only bar", results)
	}
	if engine.Failures().Count() != 1 {
		t.Errorf("failure count = %d, want 1", engine.Failures().Count())
	}
}

func TestBatch_HTTPErrorStatusIsNotTransferFailure(t *testing.T) {
	mock := testutil.NewMockServer()
	defer mock.Close()

	engine := newTestBatch(t, testMultiConfig())
	req := NewRequest(http.MethodGet, mock.URL()+"/?status=500&content=boom")
	engine.Enqueue(req)

	runBatch(t, engine)

	if req.State() != rollingbatch.StateComplete {
		t.Fatalf("state = %v, want complete", req.State())
	}
	resp, ok := req.Result()
	if !ok || resp.StatusCode != 500 || resp.Text() != "boom" {
		t.Errorf("Result() = %+v, %v", resp, ok)
	}
}

func TestBatch_TransferFailures(t *testing.T) {
	mock := testutil.NewMockServer()
	defer mock.Close()

	mock.SetHandler("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name   string
		url    string
		mutate func(*Config)
		code   transfer.Code
	}{
		{
			name:   "connection refused",
			url:    closedURL,
			mutate: func(*Config) {},
			code:   transfer.CodeConnect,
		},
		{
			name:   "body too large",
			url:    mock.URL() + "/?content=HelloWorld",
			mutate: func(c *Config) { c.MaxBodyBytes = 4 },
			code:   transfer.CodeBodyTooLarge,
		},
		{
			name:   "redirect loop",
			url:    mock.URL() + "/loop",
			mutate: func(c *Config) { c.MaxRedirects = 2 },
			code:   transfer.CodeTooManyRedirects,
		},
		{
			name:   "unsupported scheme",
			url:    "ftp://example.com/file",
			mutate: func(*Config) {},
			code:   transfer.CodeUnsupportedProtocol,
		},
		{
			name:   "unparsable url",
			url:    "http://[::1",
			mutate: func(*Config) {},
			code:   transfer.CodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testMultiConfig()
			tt.mutate(&cfg)
			engine := newTestBatch(t, cfg)

			req := NewRequest(http.MethodGet, tt.url)
			engine.Enqueue(req)
			runBatch(t, engine)

			var terr *transfer.Error
			if !errors.As(req.Err(), &terr) {
				t.Fatalf("error = %v, want *transfer.Error", req.Err())
			}
			if terr.Code != tt.code {
				t.Errorf("code = %v, want %v (%v)", terr.Code, tt.code, terr)
			}
			if engine.Results().Count() != 0 || engine.Failures().Count() != 1 {
				t.Errorf("results=%d failures=%d", engine.Results().Count(), engine.Failures().Count())
			}
		})
	}
}

func TestBatch_PostWithBodyAndHeader(t *testing.T) {
	mock := testutil.NewMockServer()
	defer mock.Close()

	type seen struct{ method, body, header string }
	seenCh := make(chan seen, 1)
	mock.SetHandler("/echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seenCh <- seen{r.Method, string(body), r.Header.Get("X-Trace")}
		w.WriteHeader(http.StatusCreated)
	})

	engine := newTestBatch(t, testMultiConfig())
	req := NewRequest(http.MethodPost, mock.URL()+"/echo")
	req.Body = []byte("payload")
	req.Header.Set("X-Trace", req.ID)
	engine.Enqueue(req)

	runBatch(t, engine)

	resp, ok := req.Result()
	if !ok || resp.StatusCode != http.StatusCreated {
		t.Fatalf("Result() = %+v, %v", resp, ok)
	}
	got := <-seenCh
	if got.method != http.MethodPost || got.body != "payload" || got.header != req.ID {
		t.Errorf("server saw method=%q body=%q header=%q", got.method, got.body, got.header)
	}
}

func TestBatch_CloseAbortsRunningRequests(t *testing.T) {
	mock := testutil.NewMockServer()
	defer mock.Close()

	engine, err := NewBatch(testMultiConfig(), testBatchConfig())
	if err != nil {
		t.Fatalf("NewBatch() error = %v", err)
	}

	req := NewRequest(http.MethodGet, mock.URL()+"/?sleep=5")
	engine.Enqueue(req)
	if _, err := engine.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	start := time.Now()
	if err := engine.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Close took %v, running transfers should be cancelled", elapsed)
	}

	var terr *transfer.Error
	if !errors.As(req.Err(), &terr) || terr.Code != transfer.CodeAborted {
		t.Errorf("error = %v, want aborted", req.Err())
	}
}

func TestBatch_RequeueAfterCompletion(t *testing.T) {
	mock := testutil.NewMockServer()
	defer mock.Close()

	engine := newTestBatch(t, testMultiConfig())
	req := NewRequest(http.MethodGet, mock.URL()+"/?content=again")

	engine.Enqueue(req)
	runBatch(t, engine)
	engine.Enqueue(req)
	runBatch(t, engine)

	if got := len(drain(engine)); got != 2 {
		t.Errorf("got %d results, want 2", got)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("server saw %d requests, want 2", mock.RequestCount())
	}
}

func TestMulti_HandleLifecycle(t *testing.T) {
	mock := testutil.NewMockServer()
	defer mock.Close()

	m, err := NewMulti(testMultiConfig())
	if err != nil {
		t.Fatalf("NewMulti() error = %v", err)
	}

	if _, err := m.NewHandle(nil); err == nil {
		t.Error("NewHandle(nil) should fail")
	}

	h, err := m.NewHandle(NewRequest(http.MethodGet, mock.URL()))
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}

	if code := m.Remove(h); code != transfer.MultiBadEasyHandle {
		t.Errorf("Remove(not added) = %v, want MultiBadEasyHandle", code)
	}
	if code := m.Add(h); code != transfer.MultiOK {
		t.Fatalf("Add() = %v", code)
	}
	if code := m.Add(h); code != transfer.MultiBadEasyHandle {
		t.Errorf("second Add() = %v, want MultiBadEasyHandle", code)
	}

	var msg transfer.Message
	deadline := time.Now().Add(5 * time.Second)
	for {
		running, code := m.Perform()
		if code != transfer.MultiOK {
			t.Fatalf("Perform() = %v", code)
		}
		if got, ok := m.InfoRead(); ok {
			msg = got
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no completion message (%d running)", running)
		}
		if err := m.Wait(50 * time.Millisecond); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	if msg.Handle != h || msg.Code != transfer.CodeOK {
		t.Errorf("message = %+v", msg)
	}
	if info := h.Info(); info.StatusCode != 200 || info.BytesReceived != int64(len(testutil.DefaultContent)) {
		t.Errorf("Info() = %+v", info)
	}
	if _, ok := m.InfoRead(); ok {
		t.Error("InfoRead() should be empty after the only message")
	}

	if code := m.Remove(h); code != transfer.MultiOK {
		t.Errorf("Remove() = %v", code)
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	h2, _ := m.NewHandle(NewRequest(http.MethodGet, mock.URL()))
	if code := m.Add(h2); code != transfer.MultiBadHandle {
		t.Errorf("Add() after Close = %v, want MultiBadHandle", code)
	}
	if _, code := m.Perform(); code != transfer.MultiBadHandle {
		t.Errorf("Perform() after Close = %v, want MultiBadHandle", code)
	}
	if err := m.Wait(time.Millisecond); !errors.Is(err, ErrClosed) {
		t.Errorf("Wait() after Close = %v, want ErrClosed", err)
	}
}

func TestMulti_WaitTimesOut(t *testing.T) {
	m, err := NewMulti(testMultiConfig())
	if err != nil {
		t.Fatalf("NewMulti() error = %v", err)
	}
	defer m.Close()

	start := time.Now()
	if err := m.Wait(20 * time.Millisecond); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Wait returned after %v, want >= 20ms", elapsed)
	}
}

func TestRequest_SetState(t *testing.T) {
	req := NewRequest(http.MethodGet, "http://example.com")
	if req.ID == "" {
		t.Error("NewRequest should assign an ID")
	}
	if req.State() != rollingbatch.StatePending {
		t.Errorf("initial state = %v, want pending", req.State())
	}

	req.response = &Response{StatusCode: 200}
	req.SetState(rollingbatch.StateComplete, nil)
	if _, ok := req.Result(); !ok {
		t.Fatal("Result() should be available after completion")
	}

	req.SetState(rollingbatch.StateActive, nil)
	if _, ok := req.Result(); ok {
		t.Error("admission should clear the previous result")
	}
}
