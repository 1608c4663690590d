// Package rankings provides access to the division ranking source used by
// Tier 1 verification.
//
// One query returns every athlete listed for a division code within a date
// range. The upstream site caps listing sizes; an oversized window is
// reported as ErrResultSetDegraded, distinct from an empty result, so
// callers can bisect the date range instead of treating the sweep as a miss.
package rankings
