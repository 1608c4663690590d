// Package names canonicalizes athlete names scraped from ranking sites.
//
// Source rows carry names in inconsistent shapes: "SMITH Jane", "Smith, Jane",
// "Jane Smith Jr", and occasionally with a leaked three-letter federation
// country code appended ("Jane Smith USA"). Normalize collapses all of these
// into the canonical "Given Family [Suffix]" form the store indexes on. The
// functions here are pure and deterministic; lookup code relies on that.
package names
