package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/rollingbatch/pkg/logging"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateHTTP(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateHTTP() error {
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent is required. Set %s or edit the config file", EnvUserAgent)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0 (got %d)", c.HTTP.TimeoutSeconds)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be > 0 (got %d)", c.HTTP.MaxBodyBytes)
	}
	if c.HTTP.MaxRedirects < 0 {
		return fmt.Errorf("http.max_redirects must be >= 0 (got %d)", c.HTTP.MaxRedirects)
	}
	return nil
}

func (c *Config) validateBatch() error {
	if !c.Batch.Unlimited && c.Batch.Parallelism < 1 {
		return fmt.Errorf("batch.parallelism has to be > 0 (got %d); set batch.unlimited to remove the cap", c.Batch.Parallelism)
	}
	if c.Batch.MaxIterations < 1 {
		return fmt.Errorf("batch.max_iterations must be > 0 (got %d)", c.Batch.MaxIterations)
	}
	if c.Batch.InitialWaitUS <= 0 {
		return fmt.Errorf("batch.initial_wait_us must be > 0 (got %d)", c.Batch.InitialWaitUS)
	}
	if c.Batch.WaitTimeoutMS <= 0 {
		return fmt.Errorf("batch.wait_timeout_ms must be > 0 (got %d)", c.Batch.WaitTimeoutMS)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return errors.New("cache.redis_addr is required when the cache is enabled")
	}
	if c.Cache.RedisDB < 0 {
		return fmt.Errorf("cache.redis_db must be >= 0 (got %d)", c.Cache.RedisDB)
	}
	if c.Cache.Namespace == "" || strings.ContainsAny(c.Cache.Namespace, ":*?[]") {
		return fmt.Errorf("cache.namespace %q must be non-empty and free of ':' and glob characters", c.Cache.Namespace)
	}
	if c.Cache.MaxEntryBytes < 0 {
		return fmt.Errorf("cache.max_entry_bytes must be >= 0 (got %d)", c.Cache.MaxEntryBytes)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(logging.LogLevel(c.Logging.Level)) {
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case FormatAuto, FormatJSON, FormatConsole:
		return nil
	default:
		return fmt.Errorf("logging.format %q is not one of auto, json, console", c.Logging.Format)
	}
}
