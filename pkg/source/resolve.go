package source

import (
	"fmt"
	"os"
	"path/filepath"

	wizerr "github.com/repowizard/repowizard/pkg/errors"
)

// EnsureParent creates the target parent directory if needed and verifies
// it is writable. Failures carry INVALID_TARGET.
func EnsureParent(parent string) error {
	if parent == "" {
		return wizerr.New(wizerr.ErrCodeInvalidTarget, "target directory is empty")
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return wizerr.Wrap(wizerr.ErrCodeInvalidTarget, err, "target parent cannot be created: %s", parent)
	}
	probe, err := os.CreateTemp(parent, ".repowizard-*")
	if err != nil {
		return wizerr.Wrap(wizerr.ErrCodeInvalidTarget, err, "target parent is not writable: %s", parent)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// ResolveTarget returns parent/name, or the first free parent/name_N with
// N starting at 1, when the desired path already exists. The result is a
// pure function of the desired path and filesystem existence.
func ResolveTarget(parent, name string) (string, error) {
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", wizerr.New(wizerr.ErrCodeInvalidTarget, "target name is empty")
	}
	desired := filepath.Join(parent, name)
	if _, err := os.Lstat(desired); os.IsNotExist(err) {
		return desired, nil
	}
	for i := 1; ; i++ {
		candidate := filepath.Join(parent, fmt.Sprintf("%s_%d", name, i))
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
}
