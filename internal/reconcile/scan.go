package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/schaermu/treepack/internal/exclude"
)

// ErrNotDirectory is returned when a tree root is missing or not a directory
var ErrNotDirectory = errors.New("not a directory")

// CheckRoot verifies that root exists and is a directory
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", root, ErrNotDirectory)
		}
		return fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}
	return nil
}

// ScanTree walks the directory root and records every regular file that
// the policy does not exclude.
func ScanTree(ctx context.Context, root string, policy *exclude.Policy) (*Snapshot, error) {
	if err := CheckRoot(root); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	return ScanFS(ctx, osfs.New(abs), abs, policy)
}

// ScanFS walks fsys from its root. root is only used to build the resolved
// Path of each entry.
func ScanFS(ctx context.Context, fsys billy.Filesystem, root string, policy *exclude.Policy) (*Snapshot, error) {
	if policy == nil {
		policy = exclude.None()
	}

	snap := &Snapshot{
		Root:    root,
		FS:      fsys,
		Entries: make(map[string]FileEntry),
	}

	if err := walk(ctx, fsys, ".", "", policy, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

// walk descends into dir (fs path) whose slash path relative to the root is rel
func walk(ctx context.Context, fsys billy.Filesystem, dir, rel string, policy *exclude.Policy, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	infos, err := fsys.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", displayPath(snap.Root, rel), err)
	}

	// Prune excluded subdirectories before looking at any file
	var subdirs []os.FileInfo
	for _, info := range infos {
		if info.IsDir() && !policy.SkipDir(path.Join(rel, info.Name())) {
			subdirs = append(subdirs, info)
		}
	}

	for _, info := range infos {
		// Symlinks, devices and sockets are not part of a tree
		if !info.Mode().IsRegular() {
			continue
		}

		childRel := path.Join(rel, info.Name())
		if policy.SkipFile(childRel) {
			continue
		}

		snap.Entries[childRel] = FileEntry{
			RelPath: childRel,
			Path:    displayPath(snap.Root, childRel),
		}
	}

	for _, info := range subdirs {
		childRel := path.Join(rel, info.Name())
		if err := walk(ctx, fsys, fsys.Join(dir, info.Name()), childRel, policy, snap); err != nil {
			return err
		}
	}

	return nil
}

func displayPath(root, rel string) string {
	if rel == "" {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}
