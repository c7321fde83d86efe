package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Sternrassler/rollingbatch/pkg/cache"
	"github.com/Sternrassler/rollingbatch/pkg/httpmux"
	"github.com/Sternrassler/rollingbatch/pkg/logging"
	"github.com/Sternrassler/rollingbatch/pkg/rollingbatch"
)

// HTTP contains transfer settings.
type HTTP struct {
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxBodyBytes   int64  `toml:"max_body_bytes"`
	MaxRedirects   int    `toml:"max_redirects"`
}

// Batch contains engine settings.
type Batch struct {
	Parallelism   int  `toml:"parallelism"`
	Unlimited     bool `toml:"unlimited"`
	MaxIterations int  `toml:"max_iterations"`
	InitialWaitUS int  `toml:"initial_wait_us"`
	WaitTimeoutMS int  `toml:"wait_timeout_ms"`
}

// Cache contains the Redis response cache settings.
type Cache struct {
	Enabled       bool   `toml:"enabled"`
	RedisAddr     string `toml:"redis_addr"`
	RedisDB       int    `toml:"redis_db"`
	Namespace     string `toml:"namespace"`
	MaxEntryBytes int64  `toml:"max_entry_bytes"`
}

// Logging contains logger settings. Format is auto, json or console.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Metrics contains the Prometheus endpoint settings. An empty Addr
// disables the endpoint.
type Metrics struct {
	Addr string `toml:"addr"`
}

// Config is the CLI configuration.
type Config struct {
	HTTP    HTTP    `toml:"http"`
	Batch   Batch   `toml:"batch"`
	Cache   Cache   `toml:"cache"`
	Logging Logging `toml:"logging"`
	Metrics Metrics `toml:"metrics"`
}

// Load reads the configuration at path. An empty path or a missing file
// yields the defaults. The returned bool reports whether a file was read.
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	path = strings.TrimSpace(path)
	exists := false
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			exists = true
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, false, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, false, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}

	return &cfg, exists, nil
}

// HTTPMux returns the multiplexer configuration. Cache and logger are left
// for the caller to set.
func (c *Config) HTTPMux() httpmux.Config {
	cfg := httpmux.DefaultConfig(c.HTTP.UserAgent)
	cfg.Timeout = time.Duration(c.HTTP.TimeoutSeconds) * time.Second
	cfg.MaxBodyBytes = c.HTTP.MaxBodyBytes
	cfg.MaxRedirects = c.HTTP.MaxRedirects
	return cfg
}

// Engine returns the batch engine configuration.
func (c *Config) Engine() rollingbatch.Config {
	cfg := rollingbatch.DefaultConfig()
	cfg.Parallelism = c.Batch.Parallelism
	if c.Batch.Unlimited {
		cfg.Parallelism = rollingbatch.Unlimited
	}
	cfg.MaxIterations = c.Batch.MaxIterations
	cfg.InitialWait = time.Duration(c.Batch.InitialWaitUS) * time.Microsecond
	cfg.WaitTimeout = time.Duration(c.Batch.WaitTimeoutMS) * time.Millisecond
	return cfg
}

// CacheOptions returns the cache manager options.
func (c *Config) CacheOptions() []cache.Option {
	return []cache.Option{
		cache.WithNamespace(c.Cache.Namespace),
		cache.WithMaxEntryBytes(c.Cache.MaxEntryBytes),
	}
}

// LoggingConfig returns the logger configuration.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Logging.Level)
	switch c.Logging.Format {
	case FormatJSON:
		cfg.Pretty = false
	case FormatConsole:
		cfg.Pretty = true
	}
	return cfg
}
