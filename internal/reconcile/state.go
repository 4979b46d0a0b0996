package reconcile

import (
	"sort"

	"github.com/go-git/go-billy/v5"
)

// FileEntry is one regular file found while scanning a tree
type FileEntry struct {
	RelPath string // slash-separated path relative to the tree root
	Path    string // resolved location of the file
}

// Snapshot maps relative paths to the files found under one root
type Snapshot struct {
	Root    string
	FS      billy.Filesystem
	Entries map[string]FileEntry
}

// Paths returns the relative paths of the snapshot in sorted order
func (s *Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.Entries))
	for rel := range s.Entries {
		paths = append(paths, rel)
	}
	sort.Strings(paths)
	return paths
}

// Result holds the outcome of comparing two snapshots. The four slices are
// disjoint and sorted.
type Result struct {
	OnlyInA   []string // present under A only
	OnlyInB   []string // present under B only
	Differing []string // present in both with different content
	Matching  []string // present in both with equal content
}

// ArchiveSetA returns the paths to package from tree A
func (r *Result) ArchiveSetA() []string {
	return union(r.OnlyInA, r.Differing)
}

// ArchiveSetB returns the paths to package from tree B
func (r *Result) ArchiveSetB() []string {
	return union(r.OnlyInB, r.Differing)
}

// Empty reports whether the two trees were found identical
func (r *Result) Empty() bool {
	return len(r.OnlyInA) == 0 && len(r.OnlyInB) == 0 && len(r.Differing) == 0
}

func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.Strings(out)
	return out
}
