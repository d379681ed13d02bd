// Command crate is the CLI for the crate music library catalog: scanning
// library roots, watching for changes, finding duplicates, and editing
// tags in bulk.
package main
