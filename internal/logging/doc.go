// Package logging builds the slog loggers used across the pipeline. It
// provides a human-oriented console handler, a JSON handler for machine
// consumption, standardized field names, and helpers that enrich loggers
// with item and stage identity carried on the context.
package logging
