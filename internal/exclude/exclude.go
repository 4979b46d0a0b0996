// Package exclude implements the exclusion policy applied to both trees of a
// comparison.
//
// A policy holds directory literals, basename glob patterns and an optional
// gitignore-style ignore file. All paths handed to a Policy are relative to
// the scanned root and use forward slashes.
package exclude

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
)

// Policy decides which directories and files are left out of a scan
type Policy struct {
	dirs     []string
	patterns []string
	globs    []glob.Glob
	ignore   *ignore.GitIgnore
}

// New builds a policy from directory literals, basename patterns and an
// optional ignore file (empty string for none).
func New(dirs, patterns []string, ignoreFile string) (*Policy, error) {
	p := &Policy{}

	for _, d := range dirs {
		d = strings.Trim(path.Clean(strings.ReplaceAll(d, `\`, "/")), "/")
		if d == "" || d == "." {
			continue
		}
		p.dirs = append(p.dirs, d)
	}

	for _, pat := range patterns {
		g, err := glob.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pat, err)
		}
		p.patterns = append(p.patterns, pat)
		p.globs = append(p.globs, g)
	}

	if ignoreFile != "" {
		gi, err := ignore.CompileIgnoreFile(ignoreFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read ignore file: %w", err)
		}
		p.ignore = gi
	}

	return p, nil
}

// MustNew is New for static inputs known to be valid.
func MustNew(dirs, patterns []string) *Policy {
	p, err := New(dirs, patterns, "")
	if err != nil {
		panic(err)
	}
	return p
}

// None returns a policy that excludes nothing
func None() *Policy {
	return &Policy{}
}

// Dirs returns the directory literals in configuration order
func (p *Policy) Dirs() []string {
	return append([]string(nil), p.dirs...)
}

// Patterns returns the basename patterns in configuration order
func (p *Policy) Patterns() []string {
	return append([]string(nil), p.patterns...)
}

// SkipDir reports whether the directory at rel is pruned together with its
// whole subtree.
func (p *Policy) SkipDir(rel string) bool {
	rel = normalize(rel)
	if rel == "" {
		return false
	}

	for _, d := range p.dirs {
		if strings.Contains(d, "/") {
			// Anchored at the scanned root
			if rel == d || strings.HasPrefix(rel, d+"/") {
				return true
			}
			continue
		}
		for _, seg := range strings.Split(rel, "/") {
			if seg == d {
				return true
			}
		}
	}

	return p.ignore != nil && p.ignore.MatchesPath(rel+"/")
}

// SkipFile reports whether the regular file at rel is left out. Files below
// an excluded directory are always skipped.
func (p *Policy) SkipFile(rel string) bool {
	rel = normalize(rel)

	if dir := path.Dir(rel); dir != "." && p.SkipDir(dir) {
		return true
	}

	base := path.Base(rel)
	for _, g := range p.globs {
		if g.Match(base) {
			return true
		}
	}

	return p.ignore != nil && p.ignore.MatchesPath(rel)
}

// normalize turns a scanned path into a slash relative path. Backslashes are
// only separators where the OS says so.
func normalize(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimPrefix(path.Clean(rel), "./")
	if rel == "." || rel == "/" {
		return ""
	}
	return strings.Trim(rel, "/")
}
