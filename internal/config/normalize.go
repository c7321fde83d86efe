package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() {
	c.applyEnv()

	c.HTTP.UserAgent = strings.TrimSpace(c.HTTP.UserAgent)
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
	c.Cache.Namespace = strings.TrimSpace(c.Cache.Namespace)
	c.Metrics.Addr = strings.TrimSpace(c.Metrics.Addr)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = FormatAuto
	}
}

func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv(EnvRedisAddr); ok && strings.TrimSpace(value) != "" {
		c.Cache.RedisAddr = value
		c.Cache.Enabled = true
	}
	if value, ok := os.LookupEnv(EnvUserAgent); ok && strings.TrimSpace(value) != "" {
		c.HTTP.UserAgent = value
	}
}
