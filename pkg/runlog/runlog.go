// Package runlog implements the per-run log: a timestamped, leveled,
// append-only sequence of entries written to a persistent file and fanned
// out to in-process subscribers (the TUI, the HTTP stream).
//
// A Recorder is scoped to one setup run. It is opened before the run
// starts and must be closed on every exit path; the file is the durable
// record, subscribers are best-effort observers.
package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level classifies a log entry.
type Level int

// Log levels, ordered by severity. Success is an info-grade level used for
// terminal "completed" markers, mirrored in the UI with distinct styling.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSuccess
)

// String returns the canonical upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelSuccess:
		return "SUCCESS"
	}
	return "UNKNOWN"
}

// Entry is one immutable log line.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// String formats the entry the way it is persisted to the log file.
func (e Entry) String() string {
	return fmt.Sprintf("%s - %s - %s", e.Time.Format("2006-01-02 15:04:05"), e.Level, e.Message)
}

// MarshalJSON is implemented on Level so streamed entries carry readable names.
func (l Level) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", l.String())), nil
}

// Recorder writes entries to a file and broadcasts them to subscribers.
// The setup worker is the only writer; subscribers only receive.
type Recorder struct {
	mu     sync.Mutex
	w      io.Writer
	file   *os.File // nil when backed by a plain writer
	path   string
	subs   []chan Entry
	closed bool
}

// Dir returns the log directory, honoring XDG_STATE_HOME and falling back
// to ~/.local/state/repowizard/logs.
func Dir() (string, error) {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, "repowizard", "logs"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "repowizard", "logs"), nil
}

// NewRecorder opens a fresh log file named after the current timestamp
// (setup_YYYYMMDD_HHMMSS.log) under dir. An empty dir selects Dir().
func NewRecorder(dir string) (*Recorder, error) {
	if dir == "" {
		d, err := Dir()
		if err != nil {
			return nil, fmt.Errorf("resolve log dir: %w", err)
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("setup_%s.log", time.Now().Format("20060102_150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		// A second run within the same second lands on the same name.
		path = filepath.Join(dir, fmt.Sprintf("setup_%s_%d.log", time.Now().Format("20060102_150405"), os.Getpid()))
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
	}
	return &Recorder{w: f, file: f, path: path}, nil
}

// NewWriterRecorder wraps an arbitrary writer. Used in tests and by the
// runner when no persistent file is wanted.
func NewWriterRecorder(w io.Writer) *Recorder {
	if w == nil {
		w = io.Discard
	}
	return &Recorder{w: w}
}

// Path returns the log file path, or empty for writer-backed recorders.
func (r *Recorder) Path() string {
	return r.path
}

// Subscribe returns a channel receiving every entry appended after the
// call. The channel is closed when the recorder closes. A subscriber that
// falls more than buf entries behind loses entries; the file keeps them.
func (r *Recorder) Subscribe(buf int) <-chan Entry {
	if buf <= 0 {
		buf = 256
	}
	ch := make(chan Entry, buf)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		close(ch)
		return ch
	}
	r.subs = append(r.subs, ch)
	return ch
}

// Append records a formatted entry at the given level.
func (r *Recorder) Append(level Level, format string, args ...any) {
	e := Entry{Time: time.Now(), Level: level, Message: fmt.Sprintf(format, args...)}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	fmt.Fprintln(r.w, e.String())
	for _, ch := range r.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close flushes and closes the file and all subscriber channels.
// Safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for _, ch := range r.subs {
		close(ch)
	}
	r.subs = nil
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// List returns the run log file names under dir, newest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
