package deps

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

// stubManager places a fake package-manager executable on PATH.
func stubManager(t *testing.T, name, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script stubs require unix")
	}
	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestInstallSuccess(t *testing.T) {
	stubManager(t, "pip", `echo "Successfully installed requests-2.28.0"
exit 0
`)
	dir := t.TempDir()

	var lines []string
	inst := &Installer{Logf: func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}}

	m := Manifest{Name: "requirements.txt", Dir: dir, Manager: "pip",
		Args: []string{"pip", "install", "-r", "requirements.txt"}}
	rec := inst.Install(context.Background(), m)

	if !rec.Success {
		t.Fatalf("Install() failed: %v", rec.Err)
	}
	if rec.Manager != "pip" || rec.Command != "pip install -r requirements.txt" {
		t.Errorf("record = %+v", rec)
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "Successfully installed") {
		t.Errorf("subprocess output not forwarded: %v", lines)
	}
}

func TestInstallManagerMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	inst := &Installer{}

	m := Manifest{Name: "requirements.txt", Dir: t.TempDir(), Manager: "pip",
		Args: []string{"pip", "install", "-r", "requirements.txt"}}
	rec := inst.Install(context.Background(), m)

	if rec.Success {
		t.Fatal("missing manager should not succeed")
	}
	if !wizerr.Is(rec.Err, wizerr.ErrCodeManagerMissing) {
		t.Errorf("Err = %v, want DEP_MANAGER_MISSING", rec.Err)
	}
	if !wizerr.Warning(rec.Err) {
		t.Error("missing manager must be a warning, not a fatal error")
	}
}

func TestInstallNonZeroExit(t *testing.T) {
	stubManager(t, "npm", `echo "npm ERR! network unreachable" >&2
exit 1
`)
	inst := &Installer{}

	m := Manifest{Name: "package.json", Dir: t.TempDir(), Manager: "npm",
		Args: []string{"npm", "install"}}
	rec := inst.Install(context.Background(), m)

	if rec.Success {
		t.Fatal("failing install reported success")
	}
	if !wizerr.Is(rec.Err, wizerr.ErrCodeInstallFailed) {
		t.Errorf("Err = %v, want DEP_INSTALL_FAILED", rec.Err)
	}
	if !strings.Contains(rec.Err.Error(), "network unreachable") {
		t.Errorf("error should carry output tail: %v", rec.Err)
	}
}

func TestInstallTimeout(t *testing.T) {
	// The background child inherits the output pipe and survives the
	// deadline kill of the stub itself, like package-manager workers do.
	stubManager(t, "bundle", `sleep 5 &
wait
`)
	inst := &Installer{Timeout: 100 * time.Millisecond}

	m := Manifest{Name: "Gemfile", Dir: t.TempDir(), Manager: "bundle",
		Args: []string{"bundle", "install"}}

	start := time.Now()
	rec := inst.Install(context.Background(), m)
	if rec.Success {
		t.Fatal("timed-out install reported success")
	}
	if !wizerr.Is(rec.Err, wizerr.ErrCodeInstallFailed) {
		t.Errorf("Err = %v, want DEP_INSTALL_FAILED", rec.Err)
	}
	if !strings.Contains(rec.Err.Error(), "timed out") {
		t.Errorf("timeout error should say so: %v", rec.Err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("subprocess not killed at deadline, took %s", elapsed)
	}
}

func TestInstallRunsInManifestDir(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran-here")
	stubManager(t, "go", `echo done > ran-here
exit 0
`)
	inst := &Installer{}

	m := Manifest{Name: "go.mod", Dir: dir, Manager: "go",
		Args: []string{"go", "mod", "download"}}
	rec := inst.Install(context.Background(), m)

	if !rec.Success {
		t.Fatalf("Install() failed: %v", rec.Err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("command did not run in manifest dir: %v", err)
	}
}
