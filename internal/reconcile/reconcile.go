// Package reconcile compares two directory trees by content digest.
//
// Both trees are scanned under the same exclusion policy, the relative path
// sets are diffed, and files present on both sides are hashed to decide
// whether they differ. Nothing is retained between runs.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/schaermu/treepack/internal/config"
	"github.com/schaermu/treepack/internal/exclude"
)

// Reconciler diffs two trees
type Reconciler struct {
	algo    config.HashAlgorithm
	workers int
	logger  *slog.Logger
}

// New creates a reconciler. workers bounds concurrent hashing; 0 selects the
// number of CPUs and 1 hashes sequentially.
func New(algo config.HashAlgorithm, workers int, logger *slog.Logger) *Reconciler {
	if algo == "" {
		algo = config.HashSHA256
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		algo:    algo,
		workers: workers,
		logger:  logger,
	}
}

// Reconcile scans rootA and rootB and compares the snapshots
func (r *Reconciler) Reconcile(ctx context.Context, rootA, rootB string, policy *exclude.Policy) (*Result, error) {
	// Validate both roots before doing any work
	if err := CheckRoot(rootA); err != nil {
		return nil, err
	}
	if err := CheckRoot(rootB); err != nil {
		return nil, err
	}

	r.logger.Info("scanning tree", "side", "A", "root", rootA)
	snapA, err := ScanTree(ctx, rootA, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", rootA, err)
	}

	r.logger.Info("scanning tree", "side", "B", "root", rootB)
	snapB, err := ScanTree(ctx, rootB, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", rootB, err)
	}

	return r.Diff(ctx, snapA, snapB)
}

// Diff compares two snapshots. Any hashing failure aborts the comparison.
func (r *Reconciler) Diff(ctx context.Context, a, b *Snapshot) (*Result, error) {
	result := &Result{
		OnlyInA:   make([]string, 0),
		OnlyInB:   make([]string, 0),
		Differing: make([]string, 0),
		Matching:  make([]string, 0),
	}

	var common []string
	for rel := range a.Entries {
		if _, ok := b.Entries[rel]; ok {
			common = append(common, rel)
		} else {
			result.OnlyInA = append(result.OnlyInA, rel)
		}
	}
	for rel := range b.Entries {
		if _, ok := a.Entries[rel]; !ok {
			result.OnlyInB = append(result.OnlyInB, rel)
		}
	}

	r.logger.Info("compared path sets",
		"files_a", len(a.Entries),
		"files_b", len(b.Entries),
		"only_a", len(result.OnlyInA),
		"only_b", len(result.OnlyInB),
		"common", len(common))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, rel := range common {
		rel := rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			same, err := r.sameContent(a, b, rel)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if same {
				result.Matching = append(result.Matching, rel)
			} else {
				r.logger.Debug("content differs", "path", rel)
				result.Differing = append(result.Differing, rel)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(result.OnlyInA)
	sort.Strings(result.OnlyInB)
	sort.Strings(result.Differing)
	sort.Strings(result.Matching)

	r.logger.Info("comparison complete",
		"differing", len(result.Differing),
		"matching", len(result.Matching))

	return result, nil
}

// sameContent hashes rel on both sides
func (r *Reconciler) sameContent(a, b *Snapshot, rel string) (bool, error) {
	name := filepath.FromSlash(rel)

	hashA, err := HashFile(a.FS, name, r.algo)
	if err != nil {
		return false, fmt.Errorf("failed to compute hash for %s: %w", a.Entries[rel].Path, err)
	}

	hashB, err := HashFile(b.FS, name, r.algo)
	if err != nil {
		return false, fmt.Errorf("failed to compute hash for %s: %w", b.Entries[rel].Path, err)
	}

	return hashA == hashB, nil
}
