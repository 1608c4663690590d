// Package ingest runs result-feed batches: it parses a CSV feed into rows,
// orders them by (normalized name, date), resolves each row to a lifter
// sequentially, writes the result with its outcome audit fields, and queues
// any row whose store write fails for operator reprocessing.
package ingest
