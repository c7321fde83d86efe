package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/rollingbatch/internal/config"
	"github.com/Sternrassler/rollingbatch/pkg/httpmux"
	"github.com/Sternrassler/rollingbatch/pkg/metrics"
	"github.com/Sternrassler/rollingbatch/pkg/rollingbatch"
	"github.com/Sternrassler/rollingbatch/pkg/transfer"
)

type fetchOptions struct {
	file        string
	parallel    int
	unlimited   bool
	timeout     time.Duration
	method      string
	headers     []string
	jsonOutput  bool
	metricsAddr string
	noCache     bool
}

type fetchResult struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	State      string `json:"state"`
	StatusCode int    `json:"status_code,omitempty"`
	Bytes      int    `json:"bytes"`
	DurationMS int64  `json:"duration_ms"`
	FromCache  bool   `json:"from_cache"`
	Error      string `json:"error,omitempty"`
	ErrorClass string `json:"error_class,omitempty"`
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch [url...]",
		Short: "Fetch URLs with a rolling parallelism cap",
		Long: `Fetch URLs given as arguments or read one per line from --file
("-" reads stdin). At most --parallel transfers run at once; a finished
transfer frees its slot for the next pending URL right away.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			urls, err := collectURLs(cmd.InOrStdin(), opts.file, args)
			if err != nil {
				return err
			}
			return runFetch(cmd, ctx, cfg, opts, urls)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "Read URLs from a file, one per line (- for stdin)")
	flags.IntVarP(&opts.parallel, "parallel", "p", 0, "Maximum concurrent transfers (default from config)")
	flags.BoolVar(&opts.unlimited, "unlimited", false, "Remove the parallelism cap")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Per-request timeout (default from config)")
	flags.StringVarP(&opts.method, "method", "X", http.MethodGet, "HTTP method")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "Extra request header, \"Name: value\" (repeatable)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Write results as JSON")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while fetching")
	flags.BoolVar(&opts.noCache, "no-cache", false, "Disable the Redis response cache")

	return cmd
}

func runFetch(cmd *cobra.Command, cc *commandContext, cfg *config.Config, opts *fetchOptions, urls []string) error {
	logger := cc.logger

	header, err := parseHeaders(opts.headers)
	if err != nil {
		return err
	}

	mcfg := cfg.HTTPMux()
	if opts.timeout > 0 {
		mcfg.Timeout = opts.timeout
	}

	if cfg.Cache.Enabled && !opts.noCache {
		manager, closeCache, err := openCache(cmd.Context(), cfg)
		if err != nil {
			logger.Warn().Err(err).Msg("Response cache unavailable, continuing without it")
		} else {
			defer closeCache()
			mcfg.Cache = manager
		}
	}

	metricsAddr := cfg.Metrics.Addr
	if opts.metricsAddr != "" {
		metricsAddr = opts.metricsAddr
	}
	if metricsAddr != "" {
		shutdown, err := serveMetrics(metricsAddr)
		if err != nil {
			return err
		}
		defer shutdown()
		logger.Info().Str("addr", metricsAddr).Msg("Serving metrics")
	}

	bcfg := cfg.Engine()
	engine, err := httpmux.NewBatch(mcfg, bcfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	switch {
	case opts.unlimited:
		engine.RemoveParallelismLimit()
	case opts.parallel != 0:
		if err := engine.SetParallelismLimit(opts.parallel); err != nil {
			return fmt.Errorf("--parallel: %w", err)
		}
	}

	requests := make([]*httpmux.Request, 0, len(urls))
	for _, u := range urls {
		req := httpmux.NewRequest(strings.ToUpper(opts.method), u)
		for name, values := range header {
			req.Header[name] = append([]string(nil), values...)
		}
		requests = append(requests, req)
	}
	engine.Enqueue(requests...)

	if err := engine.Run(cmd.Context()); err != nil {
		return err
	}

	results := make([]fetchResult, 0, len(requests))
	failed := 0
	for _, req := range requests {
		res := toFetchResult(req)
		if res.Error != "" {
			failed++
		}
		results = append(results, res)
	}

	if opts.jsonOutput {
		if err := writeJSON(cmd, results); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), renderResults(results))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(requests))
	}
	return nil
}

func toFetchResult(req *httpmux.Request) fetchResult {
	res := fetchResult{
		ID:    req.ID,
		URL:   req.URL,
		State: req.State().String(),
	}

	if resp, ok := req.Result(); ok {
		res.StatusCode = resp.StatusCode
		res.Bytes = len(resp.Body)
		res.DurationMS = resp.Duration.Milliseconds()
		res.FromCache = resp.FromCache
	}

	if err := req.Err(); err != nil {
		res.Error = err.Error()
		var terr *transfer.Error
		if errors.As(err, &terr) {
			res.ErrorClass = terr.Code.String()
			res.DurationMS = terr.Info.Duration.Milliseconds()
		}
	}
	return res
}

func renderResults(results []fetchResult) string {
	headers := []string{"#", "URL", "Status", "Bytes", "Duration", "Cache", "Error"}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft}

	rows := make([][]string, 0, len(results))
	for i, res := range results {
		status := res.State
		if res.State == rollingbatch.StateComplete.String() {
			status = strconv.Itoa(res.StatusCode)
		}
		cached := ""
		if res.FromCache {
			cached = "hit"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			res.URL,
			status,
			strconv.Itoa(res.Bytes),
			(time.Duration(res.DurationMS) * time.Millisecond).String(),
			cached,
			res.ErrorClass,
		})
	}
	return renderTable(headers, rows, aligns)
}

// collectURLs merges positional URLs with those read from file. Blank lines
// and lines starting with # are skipped.
func collectURLs(stdin io.Reader, file string, args []string) ([]string, error) {
	urls := append([]string(nil), args...)

	if file != "" {
		var r io.Reader = stdin
		if file != "-" {
			f, err := os.Open(file)
			if err != nil {
				return nil, fmt.Errorf("open url file: %w", err)
			}
			defer f.Close()
			r = f
		}

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			urls = append(urls, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read url file: %w", err)
		}
	}

	if len(urls) == 0 {
		return nil, errors.New("no URLs given; pass them as arguments or with --file")
	}
	return urls, nil
}

func parseHeaders(raw []string) (http.Header, error) {
	header := make(http.Header)
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, want \"Name: value\"", h)
		}
		header.Add(name, strings.TrimSpace(value))
	}
	return header, nil
}

// serveMetrics starts the Prometheus endpoint and returns its shutdown func.
func serveMetrics(addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = srv.Serve(ln)
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
