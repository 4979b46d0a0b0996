// Package compare turns two directory trees into a pair of archives holding
// what each side has that the other lacks or holds differently.
package compare

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/schaermu/treepack/internal/archive"
	"github.com/schaermu/treepack/internal/config"
	"github.com/schaermu/treepack/internal/exclude"
	"github.com/schaermu/treepack/internal/reconcile"
)

// Report is the outcome of one compare run
type Report struct {
	DirA     string
	DirB     string
	Result   *reconcile.Result
	ArchiveA *archive.Summary
	ArchiveB *archive.Summary
}

// Engine runs a comparison with the exclusion and output settings of cfg
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewEngine creates a new compare engine
func NewEngine(cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logger,
	}
}

// Policy builds the exclusion policy described by the configuration
func (e *Engine) Policy() (*exclude.Policy, error) {
	c := e.cfg.Compare
	policy, err := exclude.New(c.ExcludeDirs, c.ExcludePatterns, c.IgnoreFile)
	if err != nil {
		return nil, fmt.Errorf("failed to build exclusion policy: %w", err)
	}
	return policy, nil
}

// Run reconciles dirA against dirB and writes both archives. Invalid roots
// are reported before anything is written.
func (e *Engine) Run(ctx context.Context, dirA, dirB string) (*Report, error) {
	e.logger.Info("starting compare",
		"dir_a", dirA,
		"dir_b", dirB,
		"hash", e.cfg.Compare.Hash,
		"output_dir", e.cfg.Compare.OutputDir)

	policy, err := e.Policy()
	if err != nil {
		return nil, err
	}

	r := reconcile.New(e.cfg.Compare.Hash, e.cfg.Compare.Workers, e.logger)
	result, err := r.Reconcile(ctx, dirA, dirB, policy)
	if err != nil {
		return nil, err
	}

	report := &Report{
		DirA:   dirA,
		DirB:   dirB,
		Result: result,
	}

	report.ArchiveA, err = archive.PackageDir(ctx, dirA, result.ArchiveSetA(), e.cfg.ArchivePathA())
	if err != nil {
		return nil, fmt.Errorf("failed to package %s: %w", dirA, err)
	}
	e.logArchive(report.ArchiveA)

	report.ArchiveB, err = archive.PackageDir(ctx, dirB, result.ArchiveSetB(), e.cfg.ArchivePathB())
	if err != nil {
		return nil, fmt.Errorf("failed to package %s: %w", dirB, err)
	}
	e.logArchive(report.ArchiveB)

	return report, nil
}

func (e *Engine) logArchive(s *archive.Summary) {
	e.logger.Info("archive written", "path", s.Path, "files", len(s.Written))
	for _, rel := range s.Skipped {
		e.logger.Warn("file vanished before packaging", "path", rel)
	}
}

// WriteResult prints the three labelled path lists
func WriteResult(w io.Writer, result *reconcile.Result) error {
	sections := []struct {
		label string
		paths []string
	}{
		{"A has, B lacks:", result.OnlyInA},
		{"B has, A lacks:", result.OnlyInB},
		{"present in both, differing:", result.Differing},
	}

	for _, s := range sections {
		if _, err := fmt.Fprintln(w, s.label); err != nil {
			return err
		}
		for _, p := range s.paths {
			if _, err := fmt.Fprintln(w, p); err != nil {
				return err
			}
		}
	}
	return nil
}
