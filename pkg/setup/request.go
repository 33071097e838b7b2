// Package setup orchestrates a repository setup run: validate the
// request, resolve a non-colliding target, acquire the source, and
// optionally install detected dependencies. The orchestration is a
// straight pipeline driven by a small state machine; one Request produces
// one Result (or one error) and the run is then discarded.
package setup

import (
	"time"

	"github.com/repowizard/repowizard/pkg/deps"
	wizerr "github.com/repowizard/repowizard/pkg/errors"
	"github.com/repowizard/repowizard/pkg/source"
)

// Default timeouts for the two long-running external operations.
const (
	DefaultCloneTimeout   = source.DefaultCloneTimeout
	DefaultInstallTimeout = deps.DefaultInstallTimeout
)

// NestedManifestDepth is how deep monorepo discovery walks below the
// repository root when nested manifests are enabled.
const NestedManifestDepth = 3

// Request describes one setup to perform. It is immutable once submitted:
// the runner consumes it exactly once.
type Request struct {
	// Source identifies where the repository comes from.
	Source source.Descriptor `json:"source"`
	// TargetDir is the directory the repository is placed under.
	TargetDir string `json:"target_dir"`
	// TargetName overrides the derived repository name when non-empty.
	TargetName string `json:"target_name,omitempty"`
	// AutoInstall enables the dependency-install step.
	AutoInstall bool `json:"auto_install"`
	// NestedManifests extends detection into nested project roots.
	NestedManifests bool `json:"nested_manifests"`
	// CloneTimeout bounds git clone; zero means DefaultCloneTimeout.
	CloneTimeout time.Duration `json:"clone_timeout,omitempty"`
	// InstallTimeout bounds each install; zero means DefaultInstallTimeout.
	InstallTimeout time.Duration `json:"install_timeout,omitempty"`
}

// Normalize fills defaulted fields in place.
func (r *Request) Normalize() {
	if r.CloneTimeout <= 0 {
		r.CloneTimeout = DefaultCloneTimeout
	}
	if r.InstallTimeout <= 0 {
		r.InstallTimeout = DefaultInstallTimeout
	}
	if r.TargetName == "" {
		r.TargetName = r.Source.RepoName()
	}
}

// Validate checks the request before any filesystem mutation.
func (r *Request) Validate() error {
	if err := r.Source.Validate(); err != nil {
		return err
	}
	if r.TargetDir == "" {
		return wizerr.New(wizerr.ErrCodeInvalidTarget, "target directory is empty")
	}
	return nil
}
