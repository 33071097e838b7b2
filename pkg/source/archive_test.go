package source

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	wizerr "github.com/repowizard/repowizard/pkg/errors"
)

// writeZip builds a zip file from name→content pairs, in map order.
func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeTarGz(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for name, content := range entries {
		hdr := &tar.Header{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(content)),
			ModTime: time.Now(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestAcquireZipSingleRootFlattened(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "myrepo.zip")
	writeZip(t, zipPath, map[string]string{
		"myrepo/README.md":        "readme",
		"myrepo/requirements.txt": "requests==2.28.0\n",
		"myrepo/src/main.py":      "print('hi')",
	})
	dest := filepath.Join(dir, "out")

	info, err := Acquire(context.Background(), Descriptor{Kind: KindArchive, Value: zipPath}, dest, nil)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if info.Files != 3 {
		t.Errorf("Files = %d, want 3", info.Files)
	}

	// The wrapper directory is flattened away: contents live directly in dest.
	if _, err := os.Stat(filepath.Join(dest, "README.md")); err != nil {
		t.Errorf("README.md not at target root: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "myrepo")); !os.IsNotExist(err) {
		t.Error("wrapper directory myrepo/ survived flattening")
	}
	if _, err := os.Stat(filepath.Join(dest, "src", "main.py")); err != nil {
		t.Errorf("nested file missing: %v", err)
	}
}

func TestAcquireZipMultiRootNotFlattened(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "multi.zip")
	writeZip(t, zipPath, map[string]string{
		"a.txt":     "a",
		"b.txt":     "b",
		"sub/c.txt": "c",
	})
	dest := filepath.Join(dir, "out")

	info, err := Acquire(context.Background(), Descriptor{Kind: KindArchive, Value: zipPath}, dest, nil)
	if err != nil {
		t.Fatal(err)
	}
	if info.Files != 3 {
		t.Errorf("Files = %d, want 3", info.Files)
	}
	for _, name := range []string{"a.txt", "b.txt", "sub/c.txt"} {
		if _, err := os.Stat(filepath.Join(dest, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
}

func TestAcquireTarGzSingleRootFlattened(t *testing.T) {
	dir := t.TempDir()
	tarPath := filepath.Join(dir, "myrepo.tar.gz")
	writeTarGz(t, tarPath, map[string]string{
		"myrepo/go.mod":  "module example.com/myrepo\n",
		"myrepo/main.go": "package main\n",
	})
	dest := filepath.Join(dir, "out")

	info, err := Acquire(context.Background(), Descriptor{Kind: KindArchive, Value: tarPath}, dest, nil)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if info.Files != 2 {
		t.Errorf("Files = %d, want 2", info.Files)
	}
	if _, err := os.Stat(filepath.Join(dest, "go.mod")); err != nil {
		t.Errorf("go.mod not flattened to target root: %v", err)
	}
}

func TestAcquireCorruptZip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "broken.zip")
	os.WriteFile(zipPath, []byte("this is not a zip file"), 0o644)
	dest := filepath.Join(dir, "out")

	_, err := Acquire(context.Background(), Descriptor{Kind: KindArchive, Value: zipPath}, dest, nil)
	if !wizerr.Is(err, wizerr.ErrCodeArchive) {
		t.Errorf("corrupt zip error = %v, want ARCHIVE_ERROR", err)
	}
	// A failed extraction never leaves a target behind.
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("failed extraction left a target directory")
	}
}

func TestAcquireZipPathTraversalRejected(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{
		"../escape.txt": "evil",
	})
	dest := filepath.Join(dir, "out")

	_, err := Acquire(context.Background(), Descriptor{Kind: KindArchive, Value: zipPath}, dest, nil)
	if !wizerr.Is(err, wizerr.ErrCodeArchive) {
		t.Errorf("traversal error = %v, want ARCHIVE_ERROR", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(statErr) {
		t.Error("traversal entry escaped the extraction root")
	}
}

func TestFlattenRootSingleFile(t *testing.T) {
	// One top-level regular file is not the single-root-folder pattern.
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "single.zip")
	writeZip(t, zipPath, map[string]string{"only.txt": "x"})
	dest := filepath.Join(dir, "out")

	info, err := Acquire(context.Background(), Descriptor{Kind: KindArchive, Value: zipPath}, dest, nil)
	if err != nil {
		t.Fatal(err)
	}
	if info.Files != 1 {
		t.Errorf("Files = %d, want 1", info.Files)
	}
	if _, err := os.Stat(filepath.Join(dest, "only.txt")); err != nil {
		t.Errorf("only.txt missing: %v", err)
	}
}
