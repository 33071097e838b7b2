package source

import (
	"context"

	wizerr "github.com/repowizard/repowizard/pkg/errors"
)

// Acquire materializes the repository described by d at dest, which must
// not exist yet (use ResolveTarget first). All strategies return the same
// AcquireInfo shape. On failure the partial dest, if any, is left in
// place for inspection; it is never reported as a success.
func Acquire(ctx context.Context, d Descriptor, dest string, opts *Options) (AcquireInfo, error) {
	switch d.Kind {
	case KindFolder:
		opts.logf("copying from folder: %s", d.Value)
		files, err := copyTree(ctx, d.Value, dest)
		if err != nil {
			return AcquireInfo{}, err
		}
		return AcquireInfo{Path: dest, Files: files}, nil

	case KindArchive:
		opts.logf("extracting archive: %s", d.Value)
		files, err := extractArchive(ctx, d.Value, dest)
		if err != nil {
			return AcquireInfo{}, err
		}
		return AcquireInfo{Path: dest, Files: files}, nil

	case KindGit:
		opts.logf("cloning from: %s", d.Value)
		if err := clone(ctx, d.Value, dest, opts); err != nil {
			return AcquireInfo{}, err
		}
		files, err := CountFiles(dest)
		if err != nil {
			return AcquireInfo{}, wizerr.Wrap(wizerr.ErrCodeClone, err, "count cloned files")
		}
		return AcquireInfo{Path: dest, Files: files}, nil
	}
	return AcquireInfo{}, wizerr.New(wizerr.ErrCodeInvalidSource, "unknown source kind %d", d.Kind)
}
