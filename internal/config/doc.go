// Package config loads the rollingbatch CLI configuration from TOML, applies
// environment overrides and validates the result. Library users configure
// httpmux and rollingbatch directly and never need this package.
package config
