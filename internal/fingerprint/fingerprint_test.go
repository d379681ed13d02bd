package fingerprint_test

import (
	"os"
	"path/filepath"
	"testing"

	"crate/internal/fingerprint"
	"crate/internal/testsupport"
)

func TestFileDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.flac")
	testsupport.WriteFile(t, path, 64*1024)

	first, err := fingerprint.File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	second, err := fingerprint.File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if first != second {
		t.Fatalf("fingerprint not deterministic: %s != %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}
}

func TestFileDetectsTailEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.mp3")
	testsupport.WriteFile(t, path, 64*1024)
	before, err := fingerprint.File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}

	// Flip one byte near the end, as an appended tag edit would.
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteAt([]byte{0x00}, 64*1024-10); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	after, err := fingerprint.File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if before == after {
		t.Fatal("expected tail modification to change the fingerprint")
	}
}

func TestFileDetectsSizeChange(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	// Identical head and tail content, different middle length.
	testsupport.WriteFile(t, a, 100*1024)
	testsupport.WriteFile(t, b, 101*1024)

	fpA, err := fingerprint.File(a)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	fpB, err := fingerprint.File(b)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if fpA == fpB {
		t.Fatal("expected differing sizes to produce differing fingerprints")
	}
}

func TestFileSmallFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.ogg")
	testsupport.WriteFile(t, path, 512)
	if _, err := fingerprint.File(path); err != nil {
		t.Fatalf("File on small file: %v", err)
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := fingerprint.File(filepath.Join(t.TempDir(), "absent.mp3")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
