// Package bulkedit applies one set of tag-field updates across many
// catalog entries with per-entry fault isolation: a failure on one entry
// never blocks the rest, and all successful edits commit in a single
// transaction.
package bulkedit
