package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndGet(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	rec := &Record{
		SourceKind:  "folder",
		SourceValue: "/tmp/src",
		TargetPath:  "/tmp/dst/myrepo",
		Files:       10,
		Installs: []InstallSummary{
			{Manager: "pip", Command: "pip install -r requirements.txt", Success: true},
		},
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
	}
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("Save() did not assign an ID")
	}

	got, err := store.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil for saved record")
	}
	if got.SourceValue != "/tmp/src" || got.Files != 10 {
		t.Errorf("Get() = %+v", got)
	}
	if len(got.Installs) != 1 || got.Installs[0].Manager != "pip" {
		t.Errorf("installs not round-tripped: %+v", got.Installs)
	}
}

func TestGetMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	got, err := store.Get("no-such-id")
	if err != nil || got != nil {
		t.Errorf("Get(missing) = %v, %v; want nil, nil", got, err)
	}
}

func TestListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, kind := range []string{"folder", "archive", "git"} {
		rec := &Record{
			SourceKind: kind,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.Save(rec); err != nil {
			t.Fatal(err)
		}
	}
	// Junk files are skipped, not fatal.
	os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{broken"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)

	got, err := store.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List() = %d records, want 3", len(got))
	}
	if got[0].SourceKind != "git" || got[2].SourceKind != "folder" {
		t.Errorf("List() not newest-first: %v, %v, %v",
			got[0].SourceKind, got[1].SourceKind, got[2].SourceKind)
	}
}
