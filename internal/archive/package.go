// Package archive writes and reads the zip archives treepack exchanges.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// ArchiveMode is the permission of written archives
const ArchiveMode os.FileMode = 0644

// Summary reports what PackageFiles put into an archive
type Summary struct {
	Path    string   // archive location
	Written []string // relative paths stored in the archive
	Skipped []string // relative paths that no longer resolved to a regular file
}

// PackageDir packages relPaths found under root into archivePath
func PackageDir(ctx context.Context, root string, relPaths []string, archivePath string) (*Summary, error) {
	return PackageFiles(ctx, osfs.New(root), relPaths, archivePath)
}

// PackageFiles writes a deflate-compressed zip at archivePath holding every
// listed file of fsys under its slash-separated relative path. Paths that do
// not resolve to a regular file at call time are skipped. An existing archive
// is replaced only once the new one has been written completely.
func PackageFiles(ctx context.Context, fsys billy.Filesystem, relPaths []string, archivePath string) (*Summary, error) {
	// Ensure destination directory exists
	dir := filepath.Dir(archivePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".treepack-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	summary := &Summary{
		Path:    archivePath,
		Written: make([]string, 0, len(relPaths)),
	}

	zw := zip.NewWriter(tmpFile)
	buf := make([]byte, 32*1024)

	for _, rel := range sortedUnique(relPaths) {
		if err := ctx.Err(); err != nil {
			_ = tmpFile.Close()
			return nil, err
		}

		written, err := addFile(zw, fsys, rel, buf)
		if err != nil {
			_ = tmpFile.Close()
			return nil, fmt.Errorf("failed to add %s to archive: %w", rel, err)
		}
		if written {
			summary.Written = append(summary.Written, rel)
		} else {
			summary.Skipped = append(summary.Skipped, rel)
		}
	}

	if err := zw.Close(); err != nil {
		_ = tmpFile.Close()
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}

	// Set permissions on temp file
	if err := tmpFile.Chmod(ArchiveMode); err != nil {
		_ = tmpFile.Close()
		return nil, fmt.Errorf("failed to set archive permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, archivePath); err != nil {
		return nil, fmt.Errorf("failed to move archive into place: %w", err)
	}

	return summary, nil
}

// addFile stores rel in zw. It returns false when rel is not a regular file.
func addFile(zw *zip.Writer, fsys billy.Filesystem, rel string, buf []byte) (bool, error) {
	name := filepath.FromSlash(rel)

	info, err := fsys.Lstat(name)
	if err != nil || !info.Mode().IsRegular() {
		return false, nil
	}

	src, err := fsys.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer func() {
		_ = src.Close()
	}()

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return false, err
	}
	header.Name = rel
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return false, err
	}

	if _, err := io.CopyBuffer(dst, src, buf); err != nil {
		return false, err
	}

	return true, nil
}

func sortedUnique(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = filepath.ToSlash(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
