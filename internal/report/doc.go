// Package report holds the machine-readable record of a run: its outcome
// vector, canonical JSON encoding and content-addressed digest.
//
// Two runs with the same digest produced the same pass/fail/skip vector over
// the same catalog. The digest is what history comparison and the repeat
// check rely on.
package report
