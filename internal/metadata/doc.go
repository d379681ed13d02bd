// Package metadata extracts tag fields from audio files. Extraction is
// best-effort: unreadable tags yield partial fields plus a classified
// error the caller may log and ignore.
package metadata
