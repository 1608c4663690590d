package store

import (
	"errors"
	"strings"
)

// ErrStableIDConflict indicates a write would give two lifters the same
// stable id, or that a stable id is already owned by a different lifter.
// Callers must treat this distinctly from other write failures: it is a
// data-integrity signal, not a transient error.
var ErrStableIDConflict = errors.New("stable id conflict")

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

func isStableIDViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") &&
		strings.Contains(msg, "lifters.stable_id")
}
