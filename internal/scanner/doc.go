// Package scanner reconciles a library root on disk with the persisted
// catalog: it classifies every discovered audio file as new, updated, or
// unchanged, removes entries for files that vanished from the scanned
// root, and signals deferred analysis for anything that changed.
package scanner
