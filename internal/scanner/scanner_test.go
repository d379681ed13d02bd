package scanner_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"crate/internal/analysis"
	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/kvstore"
	"crate/internal/logging"
	"crate/internal/metadata"
	"crate/internal/scanner"
	"crate/internal/services"
	"crate/internal/testsupport"
)

type stubExtractor struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (s *stubExtractor) Extract(ctx context.Context, path string) (metadata.Fields, error) {
	s.mu.Lock()
	s.calls = append(s.calls, path)
	s.mu.Unlock()

	fields := metadata.Fields{
		Title:  filepath.Base(path),
		Artist: "Test Artist",
		Format: metadata.FormatFromPath(path),
	}
	if s.fail != nil && s.fail[path] {
		return metadata.Fields{Format: fields.Format}, services.Wrap(services.ErrExtraction, "metadata", "read tags", "Unable to parse tags", nil)
	}
	return fields, nil
}

func (s *stubExtractor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type harness struct {
	cfg       *config.Config
	store     *catalog.Store
	scanner   *scanner.Scanner
	extractor *stubExtractor
	queue     *analysis.MemoryQueue
	progress  *kvstore.Memory
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	extractor := &stubExtractor{}
	queue := analysis.NewMemoryQueue(64)
	progress := kvstore.NewMemory()
	return &harness{
		cfg:       cfg,
		store:     store,
		scanner:   scanner.NewWithDependencies(cfg, store, logging.NewNop(), extractor, queue, progress),
		extractor: extractor,
		queue:     queue,
		progress:  progress,
	}
}

func (h *harness) root() string {
	return testsupport.LibraryRoot(h.cfg)
}

func TestScanCatalogsNewFiles(t *testing.T) {
	h := newHarness(t)
	root := h.root()
	testsupport.WriteAudioFile(t, filepath.Join(root, "b.mp3"), 4096)
	testsupport.WriteAudioFile(t, filepath.Join(root, "a.FLAC"), 4096)
	testsupport.WriteAudioFile(t, filepath.Join(root, "album", "c.m4a"), 4096)
	testsupport.WriteFile(t, filepath.Join(root, "cover.jpg"), 512)

	result, err := h.scanner.Scan(context.Background(), root, false)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Total != 3 || result.New != 3 || result.Queued != 3 {
		t.Fatalf("result = %+v", result)
	}

	entries, err := h.store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.Status != catalog.StatusActive {
			t.Fatalf("entry %s status = %s", entry.Path, entry.Status)
		}
		if entry.Fingerprint == "" || entry.Title == "" {
			t.Fatalf("entry %s missing fingerprint or tags", entry.Path)
		}
	}
	if ids := h.queue.Drain(); len(ids) != 3 {
		t.Fatalf("expected 3 queued ids, got %d", len(ids))
	}
}

func TestScanIdempotence(t *testing.T) {
	h := newHarness(t)
	root := h.root()
	for _, name := range []string{"one.mp3", "two.flac", "three.ogg"} {
		testsupport.WriteAudioFile(t, filepath.Join(root, name), 2048)
	}

	if _, err := h.scanner.Scan(context.Background(), root, false); err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	result, err := h.scanner.Scan(context.Background(), root, false)
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if result.New != 0 || result.Updated != 0 || result.Deleted != 0 || result.Queued != 0 {
		t.Fatalf("second scan mutated: %+v", result)
	}
	if result.Unchanged != 3 {
		t.Fatalf("unchanged = %d", result.Unchanged)
	}
	if got := h.extractor.callCount(); got != 3 {
		t.Fatalf("extractor calls = %d, want 3 (no re-extraction on unchanged)", got)
	}
}

func TestFullScanReextracts(t *testing.T) {
	h := newHarness(t)
	root := h.root()
	testsupport.WriteAudioFile(t, filepath.Join(root, "track.mp3"), 2048)

	if _, err := h.scanner.Scan(context.Background(), root, false); err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	result, err := h.scanner.Scan(context.Background(), root, true)
	if err != nil {
		t.Fatalf("full Scan: %v", err)
	}
	if result.Updated != 1 || result.Queued != 1 {
		t.Fatalf("result = %+v", result)
	}
	if got := h.extractor.callCount(); got != 2 {
		t.Fatalf("extractor calls = %d, want 2", got)
	}
}

func TestScanDetectsModifiedFile(t *testing.T) {
	h := newHarness(t)
	root := h.root()
	changed := filepath.Join(root, "changed.mp3")
	testsupport.WriteAudioFile(t, changed, 2048)
	testsupport.WriteAudioFile(t, filepath.Join(root, "stable.mp3"), 2048)

	if _, err := h.scanner.Scan(context.Background(), root, false); err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	testsupport.WriteAudioFile(t, changed, 8192)

	result, err := h.scanner.Scan(context.Background(), root, false)
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if result.Updated != 1 || result.Unchanged != 1 {
		t.Fatalf("result = %+v", result)
	}
}

func TestScanDeletionScopedToRoot(t *testing.T) {
	base := t.TempDir()
	rootA := filepath.Join(base, "a")
	rootB := filepath.Join(base, "b")
	h := newHarness(t, testsupport.WithLibraryRoots(rootA, rootB))

	gone := filepath.Join(rootA, "gone.mp3")
	testsupport.WriteAudioFile(t, gone, 2048)
	testsupport.WriteAudioFile(t, filepath.Join(rootB, "kept.mp3"), 2048)

	for _, root := range []string{rootA, rootB} {
		if _, err := h.scanner.Scan(context.Background(), root, false); err != nil {
			t.Fatalf("seed Scan %s: %v", root, err)
		}
	}

	if err := os.Remove(gone); err != nil {
		t.Fatalf("remove: %v", err)
	}
	result, err := h.scanner.Scan(context.Background(), rootA, false)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("deleted = %d", result.Deleted)
	}

	entries, err := h.store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != filepath.Join(rootB, "kept.mp3") {
		t.Fatalf("entries after scoped deletion = %+v", entries)
	}
}

func TestScanMissingRoot(t *testing.T) {
	h := newHarness(t)
	_, err := h.scanner.Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), false)
	if !errors.Is(err, services.ErrPath) {
		t.Fatalf("expected ErrPath, got %v", err)
	}
}

func TestScanDeletionGuard(t *testing.T) {
	h := newHarness(t, testsupport.WithMaxDeletedFraction(0.5))
	root := h.root()
	paths := make([]string, 0, 4)
	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3"} {
		path := filepath.Join(root, name)
		testsupport.WriteAudioFile(t, path, 2048)
		paths = append(paths, path)
	}
	if _, err := h.scanner.Scan(context.Background(), root, false); err != nil {
		t.Fatalf("seed Scan: %v", err)
	}

	for _, path := range paths[:3] {
		if err := os.Remove(path); err != nil {
			t.Fatalf("remove: %v", err)
		}
	}
	_, err := h.scanner.Scan(context.Background(), root, false)
	if !errors.Is(err, scanner.ErrDeletionGuard) {
		t.Fatalf("expected ErrDeletionGuard, got %v", err)
	}

	entries, listErr := h.store.List(context.Background())
	if listErr != nil {
		t.Fatalf("List: %v", listErr)
	}
	if len(entries) != 4 {
		t.Fatalf("guard failed to protect entries: %d remain", len(entries))
	}
}

func TestScanMissingGrace(t *testing.T) {
	h := newHarness(t, testsupport.WithMissingGraceHours(1))
	root := h.root()
	path := filepath.Join(root, "flaky.mp3")
	testsupport.WriteAudioFile(t, path, 2048)

	if _, err := h.scanner.Scan(context.Background(), root, false); err != nil {
		t.Fatalf("seed Scan: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	result, err := h.scanner.Scan(context.Background(), root, false)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("deleted = %d", result.Deleted)
	}
	entry, err := h.store.GetByPath(context.Background(), path)
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if entry == nil || entry.Status != catalog.StatusMissing || entry.MissingSince == nil {
		t.Fatalf("expected entry parked in missing, got %+v", entry)
	}

	// Age the missing marker past the grace window, then rescan.
	past := time.Now().UTC().Add(-2 * time.Hour)
	entry.MissingSince = &past
	if err := h.store.Update(context.Background(), entry); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := h.scanner.Scan(context.Background(), root, false); err != nil {
		t.Fatalf("purge Scan: %v", err)
	}
	entry, err = h.store.GetByPath(context.Background(), path)
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected entry purged after grace, got %+v", entry)
	}
}

func TestScanRediscoveredMissingEntry(t *testing.T) {
	h := newHarness(t, testsupport.WithMissingGraceHours(1))
	root := h.root()
	path := filepath.Join(root, "back.mp3")
	testsupport.WriteAudioFile(t, path, 2048)

	if _, err := h.scanner.Scan(context.Background(), root, false); err != nil {
		t.Fatalf("seed Scan: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := h.scanner.Scan(context.Background(), root, false); err != nil {
		t.Fatalf("mark-missing Scan: %v", err)
	}

	testsupport.WriteAudioFile(t, path, 2048)
	result, err := h.scanner.Scan(context.Background(), root, false)
	if err != nil {
		t.Fatalf("rediscovery Scan: %v", err)
	}
	if result.Updated != 1 {
		t.Fatalf("result = %+v", result)
	}
	entry, err := h.store.GetByPath(context.Background(), path)
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if entry == nil || entry.Status != catalog.StatusActive || entry.MissingSince != nil {
		t.Fatalf("expected reactivated entry, got %+v", entry)
	}
}

func TestScanPurgesPendingDeletionWithFilePresent(t *testing.T) {
	h := newHarness(t)
	root := h.root()
	path := filepath.Join(root, "doomed.mp3")
	testsupport.WriteAudioFile(t, path, 2048)

	if _, err := h.scanner.Scan(context.Background(), root, false); err != nil {
		t.Fatalf("seed Scan: %v", err)
	}
	entry, err := h.store.GetByPath(context.Background(), path)
	if err != nil || entry == nil {
		t.Fatalf("GetByPath: entry=%v err=%v", entry, err)
	}
	entry.Status = catalog.StatusPendingDeletion
	if err := h.store.Update(context.Background(), entry); err != nil {
		t.Fatalf("Update: %v", err)
	}

	result, err := h.scanner.Scan(context.Background(), root, false)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Deleted != 1 || result.New != 0 || result.Updated != 0 {
		t.Fatalf("result = %+v", result)
	}
	entry, err = h.store.GetByPath(context.Background(), path)
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if entry != nil {
		t.Fatalf("pending entry not purged: %+v", entry)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("audio file must stay on disk: %v", err)
	}

	// The file is back to being unknown; a later scan re-catalogs it.
	result, err = h.scanner.Scan(context.Background(), root, false)
	if err != nil {
		t.Fatalf("recatalog Scan: %v", err)
	}
	if result.New != 1 {
		t.Fatalf("recatalog result = %+v", result)
	}
}

func TestScanExtractionFailureStillCatalogs(t *testing.T) {
	h := newHarness(t)
	root := h.root()
	bad := filepath.Join(root, "bad.mp3")
	testsupport.WriteAudioFile(t, bad, 2048)
	testsupport.WriteAudioFile(t, filepath.Join(root, "good.mp3"), 2048)
	h.extractor.fail = map[string]bool{bad: true}

	result, err := h.scanner.Scan(context.Background(), root, false)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.New != 2 {
		t.Fatalf("result = %+v", result)
	}
	entry, err := h.store.GetByPath(context.Background(), bad)
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if entry == nil || entry.Format != "mp3" {
		t.Fatalf("expected degraded entry with format fallback, got %+v", entry)
	}
	if entry.Title != "" {
		t.Fatalf("expected empty title on extraction failure, got %q", entry.Title)
	}
}

func TestScanCancellation(t *testing.T) {
	h := newHarness(t)
	root := h.root()
	testsupport.WriteAudioFile(t, filepath.Join(root, "track.mp3"), 2048)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.scanner.Scan(ctx, root, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	entries, listErr := h.store.List(context.Background())
	if listErr != nil {
		t.Fatalf("List: %v", listErr)
	}
	if len(entries) != 0 {
		t.Fatalf("cancelled scan persisted %d entries", len(entries))
	}
}

func TestScanPersistsProgressToCatalog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	root := testsupport.LibraryRoot(cfg)
	testsupport.WriteAudioFile(t, filepath.Join(root, "track.mp3"), 2048)

	scn := scanner.New(cfg, store, logging.NewNop())
	if _, err := scn.Scan(context.Background(), root, false); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	value, ok, err := store.KV().Get(context.Background(), scanner.ProgressKey(root))
	if err != nil || !ok {
		t.Fatalf("KV Get: ok=%v err=%v", ok, err)
	}
	var progress scanner.Progress
	if err := json.Unmarshal(value, &progress); err != nil {
		t.Fatalf("unmarshal progress: %v", err)
	}
	if progress.Phase != "done" || progress.Root != root {
		t.Fatalf("progress = %+v", progress)
	}
}

func TestScanPublishesProgress(t *testing.T) {
	h := newHarness(t)
	root := h.root()
	testsupport.WriteAudioFile(t, filepath.Join(root, "track.mp3"), 2048)

	if _, err := h.scanner.Scan(context.Background(), root, false); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	value, ok, err := h.progress.Get(context.Background(), scanner.ProgressKey(root))
	if err != nil || !ok {
		t.Fatalf("progress Get: ok=%v err=%v", ok, err)
	}
	if len(value) == 0 {
		t.Fatal("empty progress payload")
	}
}
