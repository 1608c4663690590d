// Package resolver decides which lifter a scraped result row belongs to.
//
// Resolution walks a fixed hierarchy: a supplied stable id, then a name
// lookup, then an ordered list of verification tiers (division ranking
// cross-check, member history cross-check), and finally the disambiguation
// guards. Tier failures always fall through; when every signal is exhausted
// the resolver creates a fresh lifter rather than guessing between existing
// identities. Two existing people are never merged and one person is split
// only on explicit extreme-difference evidence.
package resolver
