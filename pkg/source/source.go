// Package source materializes a repository working copy from a source
// descriptor: a local folder, an archive file, or a git URL.
//
// The three acquisition strategies are a closed set selected by Kind.
// All strategies produce the same AcquireInfo shape so the orchestrator
// stays strategy-agnostic. The package also resolves non-colliding target
// paths (name, name_1, name_2, ...) and validates inputs before any
// filesystem mutation happens.
package source

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	wizerr "github.com/repowizard/repowizard/pkg/errors"
)

// Kind identifies the acquisition strategy for a source.
type Kind int

const (
	// KindFolder copies a local directory tree.
	KindFolder Kind = iota
	// KindArchive extracts an archive file.
	KindArchive
	// KindGit clones a remote repository.
	KindGit
)

// String returns the lower-case kind name used in flags, logs, and JSON.
func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindArchive:
		return "archive"
	case KindGit:
		return "git"
	}
	return "unknown"
}

// ParseKind converts a flag value into a Kind. Accepts a few aliases that
// users reach for ("zip", "url").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "folder", "dir", "directory":
		return KindFolder, nil
	case "archive", "zip":
		return KindArchive, nil
	case "git", "url", "clone":
		return KindGit, nil
	}
	return 0, wizerr.New(wizerr.ErrCodeInvalidInput, "unknown source kind %q (folder, archive, git)", s)
}

// MarshalJSON writes the kind as its string name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON accepts the same names and aliases as ParseKind.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Descriptor is the user-supplied identification of where a repository
// originates: its kind plus a path or URL.
type Descriptor struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// archiveSuffixes lists supported archive extensions, longest first so
// stem-stripping removes ".tar.gz" before ".gz" would match.
var archiveSuffixes = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".tgz", ".tar", ".zip", ".7z"}

// archiveSuffix returns the matching archive extension of name, if any.
func archiveSuffix(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, ext := range archiveSuffixes {
		if strings.HasSuffix(lower, ext) {
			return ext, true
		}
	}
	return "", false
}

// scpLikeRe matches git's scp-like syntax: user@host:path.
var scpLikeRe = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9._-]+:.+$`)

// isGitURL reports whether s looks like a clonable remote.
// HTTP(S), ssh://, git://, and scp-like user@host:path forms are accepted.
func isGitURL(s string) bool {
	for _, prefix := range []string{"http://", "https://", "ssh://", "git://"} {
		if strings.HasPrefix(s, prefix) {
			return len(s) > len(prefix)
		}
	}
	return scpLikeRe.MatchString(s)
}

// Detect guesses the descriptor for a bare value: an existing directory is
// a folder, a known archive extension is an archive, anything URL-shaped
// is a git remote. Existence is not checked for the last two; Validate
// does that.
func Detect(value string) Descriptor {
	if isGitURL(value) {
		return Descriptor{Kind: KindGit, Value: value}
	}
	if _, ok := archiveSuffix(value); ok {
		return Descriptor{Kind: KindArchive, Value: value}
	}
	return Descriptor{Kind: KindFolder, Value: value}
}

// Validate checks the descriptor before any operation begins.
// Folder and archive sources must exist and be readable; git values must
// be syntactically valid remotes. Failures carry INVALID_SOURCE.
func (d Descriptor) Validate() error {
	value := strings.TrimSpace(d.Value)
	if value == "" {
		return wizerr.New(wizerr.ErrCodeInvalidSource, "source location is empty")
	}

	switch d.Kind {
	case KindFolder:
		info, err := os.Stat(value)
		if err != nil {
			return wizerr.Wrap(wizerr.ErrCodeInvalidSource, err, "source folder does not exist: %s", value)
		}
		if !info.IsDir() {
			return wizerr.New(wizerr.ErrCodeInvalidSource, "source is not a directory: %s", value)
		}
		if f, err := os.Open(value); err != nil {
			return wizerr.Wrap(wizerr.ErrCodeInvalidSource, err, "source folder is not readable: %s", value)
		} else {
			f.Close()
		}
	case KindArchive:
		info, err := os.Stat(value)
		if err != nil {
			return wizerr.Wrap(wizerr.ErrCodeInvalidSource, err, "archive does not exist: %s", value)
		}
		if info.IsDir() {
			return wizerr.New(wizerr.ErrCodeInvalidSource, "archive is a directory: %s", value)
		}
		if _, ok := archiveSuffix(value); !ok {
			return wizerr.New(wizerr.ErrCodeInvalidSource, "unsupported archive format: %s (supported: %s)",
				filepath.Base(value), strings.Join(archiveSuffixes, ", "))
		}
	case KindGit:
		if !isGitURL(value) {
			return wizerr.New(wizerr.ErrCodeInvalidSource, "invalid git URL: %s", value)
		}
	default:
		return wizerr.New(wizerr.ErrCodeInvalidSource, "unknown source kind %d", d.Kind)
	}
	return nil
}

// RepoName derives the repository name from the descriptor: folder
// basename, archive stem, or URL path stem with any .git suffix trimmed.
// Falls back to "repository" when the URL carries no usable path.
func (d Descriptor) RepoName() string {
	value := strings.TrimSpace(d.Value)
	switch d.Kind {
	case KindFolder:
		return filepath.Base(filepath.Clean(value))
	case KindArchive:
		name := filepath.Base(value)
		if ext, ok := archiveSuffix(name); ok {
			name = name[:len(name)-len(ext)]
		}
		return name
	case KindGit:
		var path string
		if strings.Contains(value, "://") {
			if u, err := url.Parse(value); err == nil {
				path = u.Path
			}
		} else if i := strings.Index(value, ":"); i >= 0 {
			path = value[i+1:] // scp-like form
		}
		name := filepath.Base(strings.TrimRight(path, "/"))
		name = strings.TrimSuffix(name, ".git")
		if name == "" || name == "." || name == "/" {
			return "repository"
		}
		return name
	}
	return "repository"
}

// AcquireInfo is the uniform outcome of every acquisition strategy.
type AcquireInfo struct {
	// Path is the final target directory containing the repository.
	Path string
	// Files is the recursive count of files in Path (symlinks included,
	// resolved as themselves).
	Files int
}

// Options tunes acquisition behavior.
type Options struct {
	// CloneTimeout bounds git clone. Zero means DefaultCloneTimeout.
	CloneTimeout time.Duration
	// Logf receives progress and subprocess output lines. Nil discards.
	Logf func(format string, args ...any)
}

func (o *Options) logf(format string, args ...any) {
	if o != nil && o.Logf != nil {
		o.Logf(format, args...)
	}
}

// CountFiles counts regular files and symlinks under root, recursively.
// Directories are not counted. Symlinks are counted without following.
func CountFiles(root string) (int, error) {
	count := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count files in %s: %w", root, err)
	}
	return count, nil
}
