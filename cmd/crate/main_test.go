package main

import (
	"os"
	"path/filepath"
	"testing"

	"crate/internal/testsupport"
)

func TestScanCommandCatalogsFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	root := testsupport.LibraryRoot(env.cfg)
	testsupport.WriteAudioFile(t, filepath.Join(root, "track.mp3"), 2048)

	out, _, err := runCLI(t, []string{"scan"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "Total")
	requireContains(t, out, "1")

	out, _, err = runCLI(t, []string{"library", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("library list: %v", err)
	}
	requireContains(t, out, "track.mp3")
	requireContains(t, out, "1 entries")
}

func TestScanCommandMissingRoot(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"scan", filepath.Join(env.baseDir, "no-such-root")}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Database:")
	requireContains(t, out, "Entries:  0")
}

func TestStatusShowsLastScanProgress(t *testing.T) {
	env := setupCLITestEnv(t)
	root := testsupport.LibraryRoot(env.cfg)
	testsupport.WriteAudioFile(t, filepath.Join(root, "track.mp3"), 2048)

	if _, _, err := runCLI(t, []string{"scan"}, env.configPath); err != nil {
		t.Fatalf("scan: %v", err)
	}
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Scan Root")
	requireContains(t, out, "done")
	requireContains(t, out, "1/1")
}

func TestEditCommandRequiresSelection(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"edit", "--set", "artist=Nobody"}, env.configPath)
	if err == nil {
		t.Fatal("expected error without --ids")
	}
}

func TestDupesCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"dupes"}, env.configPath)
	if err != nil {
		t.Fatalf("dupes: %v", err)
	}
	requireContains(t, out, "No duplicates found")
}

func TestParseSetFlags(t *testing.T) {
	raw, err := parseSetFlags([]string{"artist=Björk", "album=Post"})
	if err != nil {
		t.Fatalf("parseSetFlags: %v", err)
	}
	if *raw["artist"] != "Björk" || *raw["album"] != "Post" {
		t.Fatalf("raw = %v", raw)
	}
	if _, err := parseSetFlags([]string{"no-equals"}); err == nil {
		t.Fatal("expected error for malformed --set")
	}
	if _, err := parseSetFlags([]string{"=value"}); err == nil {
		t.Fatal("expected error for empty field name")
	}
}

func TestConfigInit(t *testing.T) {
	setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, statErr := os.Stat(target); statErr != nil {
		t.Fatalf("expected config file at %s: %v", target, statErr)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error without --overwrite")
	}
}
