package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	wizerr "github.com/repowizard/repowizard/pkg/errors"
)

// stubGit places a fake git executable on PATH for the test.
func stubGit(t *testing.T, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script git stub requires unix")
	}
	binDir := t.TempDir()
	path := filepath.Join(binDir, "git")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestAcquireGitSuccess(t *testing.T) {
	// The stub "clones" by creating the destination with two files.
	stubGit(t, `dest="$4"
mkdir -p "$dest/.git"
echo ref > "$dest/.git/HEAD"
echo hello > "$dest/README.md"
echo 'Cloning into...' >&2
exit 0
`)
	dest := filepath.Join(t.TempDir(), "repo")

	var lines []string
	opts := &Options{Logf: func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}}

	info, err := Acquire(context.Background(), Descriptor{Kind: KindGit, Value: "https://example.com/user/repo.git"}, dest, opts)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if info.Path != dest {
		t.Errorf("Path = %q, want %q", info.Path, dest)
	}
	if info.Files != 2 {
		t.Errorf("Files = %d, want 2", info.Files)
	}
	if !strings.Contains(strings.Join(lines, "\n"), "Cloning into") {
		t.Errorf("clone output was not forwarded to the log sink: %v", lines)
	}
}

func TestAcquireGitNonZeroExit(t *testing.T) {
	stubGit(t, `echo 'fatal: repository not found' >&2
exit 128
`)
	dest := filepath.Join(t.TempDir(), "repo")

	_, err := Acquire(context.Background(), Descriptor{Kind: KindGit, Value: "https://example.com/user/gone.git"}, dest, nil)
	if !wizerr.Is(err, wizerr.ErrCodeClone) {
		t.Fatalf("error = %v, want CLONE_ERROR", err)
	}
	if !strings.Contains(err.Error(), "repository not found") {
		t.Errorf("error should carry git's failure line, got: %v", err)
	}
}

func TestAcquireGitTimeout(t *testing.T) {
	// The background child inherits the output pipe and survives the
	// deadline kill of the stub itself, like git's transport helpers do.
	stubGit(t, `sleep 5 &
wait
`)
	dest := filepath.Join(t.TempDir(), "repo")
	opts := &Options{CloneTimeout: 100 * time.Millisecond}

	start := time.Now()
	_, err := Acquire(context.Background(), Descriptor{Kind: KindGit, Value: "https://unreachable.example/repo.git"}, dest, opts)
	if !wizerr.Is(err, wizerr.ErrCodeCloneTimeout) {
		t.Fatalf("error = %v, want CLONE_TIMEOUT", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("clone was not killed at deadline, took %s", elapsed)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("timeout error should say so: %v", err)
	}
}

func TestAcquireGitMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	dest := filepath.Join(t.TempDir(), "repo")

	_, err := Acquire(context.Background(), Descriptor{Kind: KindGit, Value: "https://example.com/repo.git"}, dest, nil)
	if !wizerr.Is(err, wizerr.ErrCodeClone) {
		t.Fatalf("error = %v, want CLONE_ERROR", err)
	}
	if !strings.Contains(err.Error(), "not installed") {
		t.Errorf("error should mention missing git: %v", err)
	}
}
