// Package analysis is the snapshot-diff and status-history engine.
//
// Inputs are the store's ordered publish dates and observation rows. NewCorpus groups
// them per date (last write wins on duplicate keys) and the four consumers (Diff,
// StatusSince, BuildHistories, FindDisappearances) read that grouped data
// independently. Nothing here performs I/O or keeps state between calls; every
// function returns freshly built values with deterministic ordering, so callers may
// run the consumers concurrently.
package analysis
