package main

import (
	"fmt"
	"log/slog"

	"github.com/schaermu/treepack/internal/config"
	"github.com/schaermu/treepack/internal/publish"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish [archives...]",
	Short: "Upload archives to S3-compatible storage",
	Long: `Publish uploads the given archives, or the two archives written by compare
when none are given, to the configured bucket below the configured prefix.

Publishing is disabled unless publish.endpoint is set in the configuration.`,
	RunE: runPublish,
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	// Setup logger
	logger := setupLogger()

	// Load configuration
	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{cfg.ArchivePathA(), cfg.ArchivePathB()}
	}

	return publishArchives(ctx, cmd, cfg, logger, paths)
}

// newPublisher builds a publisher backed by the minio uploader
var newPublisher = func(cfg *config.Config, logger *slog.Logger) (*publish.Publisher, error) {
	if !cfg.PublishEnabled() {
		return nil, publish.ErrDisabled
	}

	uploader, err := publish.NewMinioUploader(cfg.Publish)
	if err != nil {
		return nil, err
	}

	return publish.NewPublisher(uploader, cfg.Publish.Prefix, logger), nil
}
