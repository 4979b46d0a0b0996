package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
)

// ErrUnsafePath is returned for entries that would be extracted outside the
// destination directory
var ErrUnsafePath = errors.New("entry escapes destination")

// Reader is an opened zip archive whose entry names have been repaired
type Reader struct {
	rc *zip.ReadCloser
}

// Open opens the archive at path and repairs legacy entry names with enc
// (nil disables the repair).
func Open(path string, enc encoding.Encoding) (*Reader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}

	RepairNames(rc.File, enc)

	return &Reader{rc: rc}, nil
}

// Close releases the archive
func (r *Reader) Close() error {
	return r.rc.Close()
}

// Names returns the entry names in archive order
func (r *Reader) Names() []string {
	names := make([]string, 0, len(r.rc.File))
	for _, f := range r.rc.File {
		names = append(names, f.Name)
	}
	return names
}

// Contains reports whether any entry name contains substr
func (r *Reader) Contains(substr string) bool {
	for _, f := range r.rc.File {
		if strings.Contains(f.Name, substr) {
			return true
		}
	}
	return false
}

// ExtractAll writes every entry below dest, overwriting existing files. It
// returns the number of files written.
func (r *Reader) ExtractAll(ctx context.Context, dest string) (int, error) {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return 0, fmt.Errorf("failed to create destination: %w", err)
	}

	count := 0
	for _, f := range r.rc.File {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		target, err := entryTarget(dest, f.Name)
		if err != nil {
			return count, err
		}

		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			if err := os.MkdirAll(target, 0755); err != nil {
				return count, fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			return count, fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		count++
	}

	return count, nil
}

// entryTarget maps an entry name to a path below dest
func entryTarget(dest, name string) (string, error) {
	slashed := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(filepath.FromSlash(slashed)) || filepath.VolumeName(filepath.FromSlash(slashed)) != "" {
		return "", fmt.Errorf("%s: %w", name, ErrUnsafePath)
	}

	target := filepath.Join(dest, filepath.FromSlash(slashed))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", name, ErrUnsafePath)
	}

	return target, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}

	return dst.Close()
}
