package bulkedit_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"crate/internal/bulkedit"
	"crate/internal/logging"
	"crate/internal/services"
	"crate/internal/tagwriter"
	"crate/internal/testsupport"
)

type stubWriter struct {
	mu     sync.Mutex
	writes map[string]map[string]string
	fail   map[string]bool
}

func newStubWriter() *stubWriter {
	return &stubWriter{writes: make(map[string]map[string]string), fail: make(map[string]bool)}
}

func (w *stubWriter) Write(ctx context.Context, path string, updates map[string]string, overwrite bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail[path] {
		return services.Wrap(services.ErrTagWrite, "tagwriter", "write tags", "Unable to write tags", nil)
	}
	copied := make(map[string]string, len(updates))
	for k, v := range updates {
		copied[k] = v
	}
	w.writes[path] = copied
	return nil
}

func strPtr(s string) *string { return &s }

func TestFilterUpdates(t *testing.T) {
	updates, err := bulkedit.FilterUpdates(map[string]*string{
		"artist": strPtr("Boards of Canada"),
		"album":  nil,
		"year":   strPtr("1998"),
	})
	if err != nil {
		t.Fatalf("FilterUpdates: %v", err)
	}
	if len(updates) != 2 || updates["artist"] != "Boards of Canada" || updates["year"] != "1998" {
		t.Fatalf("updates = %v", updates)
	}

	if _, err := bulkedit.FilterUpdates(map[string]*string{"path": strPtr("/elsewhere")}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for non-editable field, got %v", err)
	}
	if _, err := bulkedit.FilterUpdates(map[string]*string{"year": strPtr("not-a-year")}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for malformed year, got %v", err)
	}
	if _, err := bulkedit.FilterUpdates(map[string]*string{"track_number": strPtr("-3")}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for negative track number, got %v", err)
	}
}

func TestApplyUpdatesCatalog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	e1 := testsupport.NewEntry(t, store, "/music/a/01.mp3", testsupport.WithTags("One", "Old Artist", "Old Album"))
	e2 := testsupport.NewEntry(t, store, "/music/a/02.mp3", testsupport.WithTags("Two", "Old Artist", "Old Album"))

	editor := bulkedit.New(store, newStubWriter(), logging.NewNop())
	result, err := editor.Apply(context.Background(), []string{e1.ID, e2.ID}, map[string]string{
		"album": "Music Has the Right to Children",
		"year":  "1998",
	}, false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Total != 2 || result.Successful != 2 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}
	if len(result.FieldsUpdated) != 2 || result.FieldsUpdated[0] != "album" || result.FieldsUpdated[1] != "year" {
		t.Fatalf("FieldsUpdated = %v", result.FieldsUpdated)
	}

	got, err := store.GetByID(context.Background(), e1.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Album != "Music Has the Right to Children" || got.Year != 1998 {
		t.Fatalf("entry not updated: %+v", got)
	}
	if got.Title != "One" {
		t.Fatalf("untouched field changed: %q", got.Title)
	}
}

func TestApplyFaultIsolation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	e1 := testsupport.NewEntry(t, store, "/music/a/01.mp3")
	e2 := testsupport.NewEntry(t, store, "/music/a/02.mp3")

	editor := bulkedit.New(store, newStubWriter(), logging.NewNop())
	result, err := editor.Apply(context.Background(), []string{e1.ID, "no-such-id", e2.ID}, map[string]string{
		"genre": "IDM",
	}, false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Total != 3 || result.Successful != 2 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if result.Errors["no-such-id"] != "Entry not found" {
		t.Fatalf("Errors = %v", result.Errors)
	}

	for _, id := range []string{e1.ID, e2.ID} {
		got, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Genre != "IDM" {
			t.Fatalf("successful entry %s not committed: %+v", id, got)
		}
	}
}

func TestApplyWriteToFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	root := testsupport.LibraryRoot(cfg)

	okPath := filepath.Join(root, "ok.mp3")
	badPath := filepath.Join(root, "bad.mp3")
	testsupport.WriteAudioFile(t, okPath, 2048)
	testsupport.WriteAudioFile(t, badPath, 2048)

	okEntry := testsupport.NewEntry(t, store, okPath)
	badEntry := testsupport.NewEntry(t, store, badPath)
	goneEntry := testsupport.NewEntry(t, store, filepath.Join(root, "gone.mp3"))

	writer := newStubWriter()
	writer.fail[badPath] = true

	editor := bulkedit.New(store, writer, logging.NewNop())
	result, err := editor.Apply(context.Background(), []string{okEntry.ID, badEntry.ID, goneEntry.ID}, map[string]string{
		"artist": "Autechre",
	}, true)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Successful != 1 || result.Failed != 2 {
		t.Fatalf("result = %+v", result)
	}
	if result.Errors[goneEntry.ID] != "File not found" {
		t.Fatalf("Errors = %v", result.Errors)
	}
	if _, recorded := result.Errors[badEntry.ID]; !recorded {
		t.Fatalf("writer failure not recorded: %v", result.Errors)
	}
	if writer.writes[okPath]["artist"] != "Autechre" {
		t.Fatalf("tags not written for %s: %v", okPath, writer.writes)
	}

	got, err := store.GetByID(context.Background(), badEntry.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Artist == "Autechre" {
		t.Fatal("failed entry must not be committed")
	}
}

func TestApplyEmptyUpdatesIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	entry := testsupport.NewEntry(t, store, "/music/a/01.mp3", testsupport.WithTags("One", "Artist", "Album"))

	editor := bulkedit.New(store, newStubWriter(), logging.NewNop())
	result, err := editor.Apply(context.Background(), []string{entry.ID}, nil, false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Successful != 0 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}
}

func TestCommonValues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	e1 := testsupport.NewEntry(t, store, "/music/a/01.mp3", testsupport.WithTags("One", "Plaid", "Double Figure"))
	e2 := testsupport.NewEntry(t, store, "/music/a/02.mp3", testsupport.WithTags("Two", "Plaid", "Double Figure"))

	editor := bulkedit.New(store, newStubWriter(), logging.NewNop())
	values, err := editor.CommonValues(context.Background(), []string{e1.ID, e2.ID})
	if err != nil {
		t.Fatalf("CommonValues: %v", err)
	}
	if values[tagwriter.KeyArtist] != "Plaid" || values[tagwriter.KeyAlbum] != "Double Figure" {
		t.Fatalf("values = %v", values)
	}
	if values[tagwriter.KeyTitle] != bulkedit.Mixed {
		t.Fatalf("title = %q, want mixed", values[tagwriter.KeyTitle])
	}
	if values[tagwriter.KeyYear] != "" {
		t.Fatalf("unset year = %q, want empty", values[tagwriter.KeyYear])
	}
}
