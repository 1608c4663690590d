// Package members provides access to the member history source used by
// Tier 2 verification.
//
// GetHistory walks an athlete's full paginated participation record;
// SearchByName is the fallback discovery path for candidates that do not yet
// carry a stable id.
package members
