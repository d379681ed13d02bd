package testsupport

import (
	"context"
	"testing"
	"time"

	"crate/internal/catalog"
	"crate/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// EntryOption mutates a fixture entry before insertion.
type EntryOption func(*catalog.Entry)

// NewEntry inserts a minimal active entry at the given path.
func NewEntry(t testing.TB, store *catalog.Store, path string, opts ...EntryOption) *catalog.Entry {
	t.Helper()

	entry := &catalog.Entry{
		Path:        path,
		Fingerprint: "fp-" + path,
		ModTime:     time.Now().UTC(),
		Status:      catalog.StatusActive,
	}
	for _, opt := range opts {
		opt(entry)
	}
	if err := store.Insert(context.Background(), entry); err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return entry
}

// WithTags sets the common tag fields on a fixture entry.
func WithTags(title, artist, album string) EntryOption {
	return func(entry *catalog.Entry) {
		entry.Title = title
		entry.Artist = artist
		entry.Album = album
	}
}

// WithStream sets the stream properties on a fixture entry.
func WithStream(format string, bitrateKbps, sampleRateHz, bitDepth int, mode string) EntryOption {
	return func(entry *catalog.Entry) {
		entry.Format = format
		entry.BitrateKbps = bitrateKbps
		entry.SampleRateHz = sampleRateHz
		entry.BitDepth = bitDepth
		entry.BitrateMode = mode
	}
}

// WithDuration sets the duration on a fixture entry.
func WithDuration(seconds float64) EntryOption {
	return func(entry *catalog.Entry) {
		entry.DurationSeconds = seconds
	}
}
