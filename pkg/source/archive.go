package source

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/xi2/xz"

	wizerr "github.com/repowizard/repowizard/pkg/errors"
)

// extractArchive extracts src into dest, flattening a single top-level
// directory so dest directly contains the repository contents. Extraction
// happens into a temporary sibling of dest which is renamed into place
// only on success, so a failed extraction leaves no half-written target.
func extractArchive(ctx context.Context, src, dest string) (int, error) {
	tmp := fmt.Sprintf("%s.partial-%d", dest, os.Getpid())
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return 0, wizerr.Wrap(wizerr.ErrCodeInvalidTarget, err, "create extraction dir")
	}
	defer os.RemoveAll(tmp)

	ext, _ := archiveSuffix(src)
	var err error
	switch ext {
	case ".zip":
		err = extractZip(ctx, src, tmp)
	case ".7z":
		err = extract7z(ctx, src, tmp)
	case ".tar", ".tar.gz", ".tgz", ".tar.bz2", ".tar.xz":
		err = extractTar(ctx, src, tmp)
	default:
		err = wizerr.New(wizerr.ErrCodeArchive, "unsupported archive format: %s", filepath.Base(src))
	}
	if err != nil {
		return 0, err
	}

	root, err := flattenRoot(tmp)
	if err != nil {
		return 0, wizerr.Wrap(wizerr.ErrCodeArchive, err, "normalize archive layout")
	}
	if err := os.Rename(root, dest); err != nil {
		return 0, wizerr.Wrap(wizerr.ErrCodeInvalidTarget, err, "move extracted tree into place")
	}
	count, err := CountFiles(dest)
	if err != nil {
		return 0, wizerr.Wrap(wizerr.ErrCodeArchive, err, "count extracted files")
	}
	return count, nil
}

// flattenRoot detects the single-root-folder pattern: when tmp contains
// exactly one top-level directory, that directory becomes the tree to
// move, so the final target holds the repository contents directly.
// Returns the directory that should be renamed to the destination.
func flattenRoot(tmp string) (string, error) {
	entries, err := os.ReadDir(tmp)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(tmp, entries[0].Name()), nil
	}
	return tmp, nil
}

// securePath joins name under root, rejecting absolute names and any
// path that would escape root via "..".
func securePath(root, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("archive entry has absolute path: %s", name)
	}
	joined := filepath.Join(root, name)
	if joined != root && !strings.HasPrefix(joined, root+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return joined, nil
}

func extractZip(ctx context.Context, src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return wizerr.Wrap(wizerr.ErrCodeArchive, err, "invalid zip file: %s", filepath.Base(src))
	}
	defer r.Close()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeZipEntry(f, dest); err != nil {
			return wizerr.Wrap(wizerr.ErrCodeArchive, err, "extract %s", f.Name)
		}
	}
	return nil
}

func writeZipEntry(f *zip.File, dest string) error {
	path, err := securePath(dest, f.Name)
	if err != nil {
		return err
	}
	mode := f.Mode()

	switch {
	case f.FileInfo().IsDir():
		return os.MkdirAll(path, dirPerm(mode))
	case mode&os.ModeSymlink != 0:
		rc, err := f.Open()
		if err != nil {
			return err
		}
		link, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		return os.Symlink(string(link), path)
	default:
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		return writeFile(path, rc, mode)
	}
}

func extractTar(ctx context.Context, src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return wizerr.Wrap(wizerr.ErrCodeArchive, err, "open archive: %s", filepath.Base(src))
	}
	defer f.Close()

	var reader io.Reader = f
	lower := strings.ToLower(src)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			return wizerr.Wrap(wizerr.ErrCodeArchive, err, "invalid gzip stream: %s", filepath.Base(src))
		}
		defer gr.Close()
		reader = gr
	case strings.HasSuffix(lower, ".tar.bz2"):
		reader = bzip2.NewReader(f)
	case strings.HasSuffix(lower, ".tar.xz"):
		xzr, err := xz.NewReader(f, 0)
		if err != nil {
			return wizerr.Wrap(wizerr.ErrCodeArchive, err, "invalid xz stream: %s", filepath.Base(src))
		}
		reader = xzr
	}

	tr := tar.NewReader(reader)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wizerr.Wrap(wizerr.ErrCodeArchive, err, "invalid tar archive: %s", filepath.Base(src))
		}
		if err := writeTarEntry(tr, hdr, dest); err != nil {
			return wizerr.Wrap(wizerr.ErrCodeArchive, err, "extract %s", hdr.Name)
		}
	}
}

func writeTarEntry(tr *tar.Reader, hdr *tar.Header, dest string) error {
	path, err := securePath(dest, hdr.Name)
	if err != nil {
		return err
	}
	mode := hdr.FileInfo().Mode()

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(path, dirPerm(mode))
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		return os.Symlink(hdr.Linkname, path)
	case tar.TypeReg:
		return writeFile(path, tr, mode)
	default:
		// Hard links, devices, fifos: not repository content, skipped.
		return nil
	}
}

func extract7z(ctx context.Context, src, dest string) error {
	r, err := sevenzip.OpenReader(src)
	if err != nil {
		return wizerr.Wrap(wizerr.ErrCodeArchive, err, "invalid 7z file: %s", filepath.Base(src))
	}
	defer r.Close()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, err := securePath(dest, f.Name)
		if err != nil {
			return wizerr.Wrap(wizerr.ErrCodeArchive, err, "extract %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(path, dirPerm(f.Mode())); err != nil {
				return wizerr.Wrap(wizerr.ErrCodeArchive, err, "extract %s", f.Name)
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return wizerr.Wrap(wizerr.ErrCodeArchive, err, "extract %s", f.Name)
		}
		err = writeFile(path, rc, f.Mode())
		rc.Close()
		if err != nil {
			return wizerr.Wrap(wizerr.ErrCodeArchive, err, "extract %s", f.Name)
		}
	}
	return nil
}

// writeFile creates path (and parent dirs) with the entry's contents.
func writeFile(path string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm(mode))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// dirPerm normalizes directory permissions; archives built on Windows
// often carry 0 for directories.
func dirPerm(mode fs.FileMode) fs.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		perm = 0o755
	}
	return perm | 0o700
}

func filePerm(mode fs.FileMode) fs.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	return perm
}
