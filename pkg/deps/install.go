package deps

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	wizerr "github.com/repowizard/repowizard/pkg/errors"
)

// DefaultInstallTimeout bounds each package-manager invocation.
const DefaultInstallTimeout = 10 * time.Minute

// installWaitDelay bounds how long Wait may keep collecting output after
// the deadline kills the manager. Package managers spawn workers that
// inherit the output pipe and can hold it open past the kill; Wait
// abandons the pipe after this window instead of blocking on them.
const installWaitDelay = 2 * time.Second

// Record is the outcome of one install attempt. Failures are recorded,
// not propagated: a failed or skipped install never aborts the setup.
type Record struct {
	Manager  string        `json:"manager"`
	Command  string        `json:"command"`
	Dir      string        `json:"dir"`
	Success  bool          `json:"success"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Installer runs install commands for detected manifests.
type Installer struct {
	// Timeout per invocation. Zero means DefaultInstallTimeout.
	Timeout time.Duration
	// Logf receives subprocess output lines and progress. Nil discards.
	Logf func(format string, args ...any)
}

func (i *Installer) logf(format string, args ...any) {
	if i.Logf != nil {
		i.Logf(format, args...)
	}
}

// Install runs the manifest's install command in its directory.
// The executable is resolved first: a missing manager yields a
// DEP_MANAGER_MISSING record. Non-zero exits and timeouts yield
// DEP_INSTALL_FAILED records. The command runs with an explicit argument
// vector, never through a shell.
func (i *Installer) Install(ctx context.Context, m Manifest) Record {
	rec := Record{Manager: m.Manager, Command: m.Command(), Dir: m.Dir}

	if _, err := exec.LookPath(m.Manager); err != nil {
		rec.Err = wizerr.New(wizerr.ErrCodeManagerMissing,
			"%s is not installed or not in PATH, skipping %s", m.Manager, m.Name)
		return rec
	}

	timeout := i.Timeout
	if timeout <= 0 {
		timeout = DefaultInstallTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	i.logf("running: %s", rec.Command)
	start := time.Now()

	cmd := exec.CommandContext(cctx, m.Args[0], m.Args[1:]...)
	cmd.Dir = m.Dir
	cmd.WaitDelay = installWaitDelay
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	rec.Duration = time.Since(start)

	scanner := bufio.NewScanner(bytes.NewReader(output.Bytes()))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			i.logf("%s", line)
		}
	}

	switch {
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		rec.Err = wizerr.New(wizerr.ErrCodeInstallFailed,
			"%s timed out after %s", rec.Command, timeout)
	case ctx.Err() != nil:
		rec.Err = ctx.Err()
	case err != nil:
		rec.Err = wizerr.Wrap(wizerr.ErrCodeInstallFailed, err,
			"%s failed: %s", rec.Command, tailLine(&output))
	default:
		rec.Success = true
	}
	return rec
}

// tailLine returns the last non-empty output line for error messages.
func tailLine(buf *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no output"
}
