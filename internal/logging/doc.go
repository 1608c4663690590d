// Package logging assembles structured slog loggers used across liftdb.
//
// It owns the console/JSON handler selection, centralizes level and output
// plumbing, and exposes context-aware helpers so resolution code can
// automatically tag log lines with batch and row identifiers. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
