package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/schaermu/treepack/internal/compare"
	"github.com/schaermu/treepack/internal/config"
	"github.com/schaermu/treepack/internal/reconcile"
	"github.com/spf13/cobra"
)

var (
	// Compare command flags
	outputDir    string
	hashAlgo     string
	workers      int
	publishAfter bool
)

var compareCmd = &cobra.Command{
	Use:   "compare [dirA] [dirB]",
	Short: "Compare two directory trees and package their differences",
	Long: `Compare scans both trees under the configured exclusion policy, hashes files
present on both sides, and writes two archives: one with the files A has that
B lacks or holds differently, and the mirror image for B.

Missing directory arguments are asked for interactively.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory receiving the archives (default from config)")
	compareCmd.Flags().StringVar(&hashAlgo, "hash", "", "content digest: sha256 or xxh3 (default from config)")
	compareCmd.Flags().IntVar(&workers, "workers", -1, "parallel hashing workers, 0 = number of CPUs (default from config)")
	compareCmd.Flags().BoolVar(&publishAfter, "publish", false, "upload the archives after writing them")
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	// Setup logger
	logger := setupLogger()

	// Load configuration
	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyCompareFlags(cfg); err != nil {
		return err
	}

	dirA, dirB, err := compareDirs(cmd, args)
	if err != nil {
		return err
	}

	// Run compare
	engine := compare.NewEngine(cfg, logger)
	report, err := engine.Run(ctx, dirA, dirB)
	if err != nil {
		if errors.Is(err, reconcile.ErrNotDirectory) {
			return fmt.Errorf("invalid input directory: %w", err)
		}
		logger.Error("compare failed", "error", err)
		return err
	}

	if err := compare.WriteResult(cmd.OutOrStdout(), report.Result); err != nil {
		return err
	}

	if publishAfter {
		return publishArchives(ctx, cmd, cfg, logger, []string{report.ArchiveA.Path, report.ArchiveB.Path})
	}
	return nil
}

// applyCompareFlags overrides configuration values given on the command line
func applyCompareFlags(cfg *config.Config) error {
	if outputDir != "" {
		cfg.Compare.OutputDir = outputDir
	}
	if hashAlgo != "" {
		cfg.Compare.Hash = config.HashAlgorithm(hashAlgo)
	}
	if workers >= 0 {
		cfg.Compare.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// compareDirs returns the two roots, asking for any that were not given
func compareDirs(cmd *cobra.Command, args []string) (string, string, error) {
	dirs := make([]string, 2)
	copy(dirs, args)

	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	labels := []string{"Path to directory A", "Path to directory B"}
	for i := range dirs {
		for dirs[i] == "" {
			answer, err := p.ask(labels[i], "")
			if err != nil {
				return "", "", fmt.Errorf("failed to read %s: %w", labels[i], err)
			}
			dirs[i] = answer
		}
	}

	return dirs[0], dirs[1], nil
}

// publishArchives uploads paths with the configured storage settings
func publishArchives(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, paths []string) error {
	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}

	objects, err := publisher.Publish(ctx, paths)
	if err != nil {
		logger.Error("publish failed", "error", err)
		return err
	}

	for _, object := range objects {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", path.Join(cfg.Publish.Bucket, object))
	}
	return nil
}
