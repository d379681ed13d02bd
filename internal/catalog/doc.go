// Package catalog persists the library of known tracks in SQLite. The
// reconciler owns entry creation, update, and lifecycle transitions during
// scans; the bulk editor owns field mutation during explicit edits; nothing
// else writes entries.
package catalog
