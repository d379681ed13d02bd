// Package kvstore is a small key-value store interface for shared state
// such as scan progress snapshots. The catalog provides a SQLite-backed
// implementation that other processes can read; the in-memory
// implementation here serves tests and single-process use.
package kvstore
