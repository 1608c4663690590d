// Package store persists the lifter roster and competition results in SQLite.
//
// It is the only component that writes identity data. Two rules matter
// everywhere: a non-null stable id belongs to at most one lifter (enforced by
// a unique index and surfaced as ErrStableIDConflict), and enrichment updates
// only ever fill columns that are currently NULL. The reprocess queue holds
// result rows whose writes failed so a batch never silently drops a row.
package store
