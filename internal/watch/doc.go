// Package watch monitors library roots for filesystem changes and triggers
// debounced incremental scans, so the catalog follows the library without
// manual rescans.
package watch
