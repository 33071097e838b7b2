package source

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

// DefaultCloneTimeout bounds git clone; a remote that produces no result
// within this window is treated as failed.
const DefaultCloneTimeout = 5 * time.Minute

// cloneWaitDelay bounds how long Wait may keep collecting output after
// the deadline kills git. Git's transport helpers inherit the output
// pipe and can hold it open past the kill; Wait abandons the pipe after
// this window instead of blocking on them.
const cloneWaitDelay = 2 * time.Second

// clone runs `git clone <url> <dest>` with the given timeout. The git
// binary must be on PATH. Output lines are forwarded to opts.Logf. The
// command is invoked with an explicit argument vector, never a shell.
func clone(ctx context.Context, url, dest string, opts *Options) error {
	if _, err := exec.LookPath("git"); err != nil {
		return wizerr.New(wizerr.ErrCodeClone, "git is not installed or not in PATH")
	}

	timeout := DefaultCloneTimeout
	if opts != nil && opts.CloneTimeout > 0 {
		timeout = opts.CloneTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "git", "clone", "--", url, dest)
	cmd.WaitDelay = cloneWaitDelay
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	forwardLines(opts, &output)

	switch {
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		return wizerr.New(wizerr.ErrCodeCloneTimeout, "git clone timed out after %s", timeout)
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		return wizerr.Wrap(wizerr.ErrCodeClone, err, "git clone failed: %s", lastLine(&output))
	}
	return nil
}

// forwardLines streams captured subprocess output to the log sink.
func forwardLines(opts *Options, buf *bytes.Buffer) {
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			opts.logf("%s", line)
		}
	}
}

// lastLine returns the final non-empty output line, the part of git's
// output that usually names the actual failure.
func lastLine(buf *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no output"
}
