// Package fingerprint computes a cheap content digest used to detect file
// modification between scans without re-reading whole files.
package fingerprint
