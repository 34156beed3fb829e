// Package config loads, normalizes, and validates the TOML configuration
// that drives the pipeline. A Config value is constructed once at startup and
// passed explicitly to the orchestrator and stage handlers; there is no
// ambient global configuration.
package config
