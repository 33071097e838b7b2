// Package history records completed setup runs so they can be listed and
// inspected later. Records are JSON files in a per-user data directory,
// one file per run.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InstallSummary captures one dependency-install attempt.
type InstallSummary struct {
	Manager string `json:"manager"`
	Command string `json:"command"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Record is the durable summary of one setup run.
type Record struct {
	ID          string           `json:"id"`
	SourceKind  string           `json:"source_kind"`
	SourceValue string           `json:"source_value"`
	TargetPath  string           `json:"target_path,omitempty"`
	Files       int              `json:"files_processed"`
	Installs    []InstallSummary `json:"installs,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	Error       string           `json:"error,omitempty"`
	LogPath     string           `json:"log_path,omitempty"`
}

// NewID returns a fresh run identifier.
func NewID() string {
	return uuid.NewString()
}

// FileStore persists run records as JSON files.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// Dir returns the run-record directory, honoring XDG_DATA_HOME and
// falling back to ~/.local/share/repowizard/runs.
func Dir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "repowizard", "runs"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "repowizard", "runs"), nil
}

// NewFileStore creates a store rooted at baseDir; empty selects Dir().
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		d, err := Dir()
		if err != nil {
			return nil, fmt.Errorf("resolve runs dir: %w", err)
		}
		baseDir = d
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create runs dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) recordPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

// Save writes a record; a record without an ID gets one assigned.
func (s *FileStore) Save(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = NewID()
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	if err := os.WriteFile(s.recordPath(rec.ID), data, 0o644); err != nil {
		return fmt.Errorf("write run record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID. Returns nil, nil when it does not exist.
func (s *FileStore) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse run record: %w", err)
	}
	return &rec, nil
}

// List returns all records, newest first. Unreadable files are skipped.
func (s *FileStore) List() ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list runs dir: %w", err)
	}
	var out []*Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, e.Name()))
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}
