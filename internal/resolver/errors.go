package resolver

import "errors"

var (
	// ErrNotFound marks an external lookup that completed but matched
	// nothing. Expected during resolution; never logged as an error.
	ErrNotFound = errors.New("not found")

	// ErrPerformanceMismatch marks a history entry that matched by name and
	// date but failed the performance tolerances. Treated as not-found for
	// resolution purposes, logged for audit.
	ErrPerformanceMismatch = errors.New("performance mismatch")

	// ErrIntegrityConflict marks duplicate stable ids or a stable-id/name
	// disagreement in persisted data. Logged, never auto-resolved.
	ErrIntegrityConflict = errors.New("integrity conflict")

	// ErrTransient marks timeouts and network failures. Retried with backoff
	// at the tier boundary; a tier that stays transient is inconclusive, not
	// fatal.
	ErrTransient = errors.New("transient failure")

	// ErrValidation marks a tier invoked without the context fields it
	// needs. The tier is skipped, not failed.
	ErrValidation = errors.New("validation error")
)
