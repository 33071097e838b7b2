package source

import (
	"context"
	"io"
	"os"
	"path/filepath"

	wizerr "github.com/repowizard/repowizard/pkg/errors"
)

// copyTree recursively copies src into dst, preserving symlinks (recreated
// rather than followed), file modes, and modification times. It returns
// the number of files copied (regular files plus symlinks).
func copyTree(ctx context.Context, src, dst string) (int, error) {
	count := 0
	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.Symlink(link, target); err != nil {
				return err
			}
			count++
		case info.IsDir():
			if err := os.MkdirAll(target, info.Mode().Perm()); err != nil {
				return err
			}
		default:
			if err := copyFile(path, target, info); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return count, wizerr.Wrap(wizerr.ErrCodeInvalidSource, err, "copy %s", src)
	}
	return count, nil
}

// copyFile copies one regular file, carrying over mode and mtime.
func copyFile(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
