// Package install applies the conversion package to a game directory.
package install

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding"

	"github.com/schaermu/treepack/internal/archive"
	"github.com/schaermu/treepack/internal/config"
	"github.com/schaermu/treepack/internal/fetch"
	"github.com/schaermu/treepack/internal/launch"
)

var (
	// ErrInvalidTarget is returned when a directory is not a game installation
	ErrInvalidTarget = errors.New("invalid target directory")
	// ErrInvalidPackage is returned when a package is not a usable conversion package
	ErrInvalidPackage = errors.New("invalid conversion package")
	// ErrUnknownSource is returned for a mirror choice outside the configured list
	ErrUnknownSource = errors.New("unknown package source")
)

// Options selects what a Run does
type Options struct {
	Target      string // game directory
	Source      int    // 1-based mirror index, used when PackageFile is empty
	PackageFile string // local package, skips the download
	NoLaunch    bool
}

// Engine orchestrates the install process
type Engine struct {
	cfg      *config.Config
	fetcher  fetch.Client
	launcher launch.Launcher
	logger   *slog.Logger
}

// NewEngine creates a new install engine
func NewEngine(cfg *config.Config, fetcher fetch.Client, launcher launch.Launcher, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		fetcher:  fetcher,
		launcher: launcher,
		logger:   logger,
	}
}

// Run executes the complete install process
func (e *Engine) Run(ctx context.Context, opts Options) error {
	if err := e.ValidateTarget(opts.Target); err != nil {
		return err
	}

	pkg := opts.PackageFile
	if pkg != "" {
		if err := e.ValidatePackage(pkg); err != nil {
			return err
		}
	} else {
		var err error
		pkg, err = e.Obtain(ctx, opts.Source)
		if err != nil {
			return err
		}
	}

	if _, err := e.Apply(ctx, pkg, opts.Target); err != nil {
		return err
	}

	if opts.NoLaunch {
		e.logger.Info("skipping launch")
		return nil
	}
	return e.Launch(ctx, opts.Target)
}

// ValidateTarget checks that dir holds every configured marker file and
// directory
func (e *Engine) ValidateTarget(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: no directory given", ErrInvalidTarget)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidTarget, dir)
	}

	for _, name := range e.cfg.Install.TargetFiles {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || !info.Mode().IsRegular() {
			return fmt.Errorf("%w: %s lacks %s", ErrInvalidTarget, dir, name)
		}
	}

	for _, name := range e.cfg.Install.TargetDirs {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s lacks directory %s", ErrInvalidTarget, dir, name)
		}
	}

	return nil
}

// Source returns the mirror for a 1-based choice
func (e *Engine) Source(choice int) (config.SourceConfig, error) {
	sources := e.cfg.Install.Sources
	if choice < 1 || choice > len(sources) {
		return config.SourceConfig{}, fmt.Errorf("%w: %d (have %d)", ErrUnknownSource, choice, len(sources))
	}
	return sources[choice-1], nil
}

// Obtain downloads and validates the package from the chosen mirror. A
// failed attempt is repeated up to the configured number of retries.
func (e *Engine) Obtain(ctx context.Context, choice int) (string, error) {
	src, err := e.Source(choice)
	if err != nil {
		return "", err
	}

	dest := e.cfg.PackagePath()
	attempts := e.cfg.Install.Retries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if attempt > 1 {
			e.logger.Warn(fmt.Sprintf("retry %d", attempt-1), "source", src.Name, "error", lastErr)
		}

		e.logger.Info("downloading package", "source", src.Name, "url", src.URL, "dest", dest)
		if err := e.fetcher.Download(ctx, src.URL, dest); err != nil {
			lastErr = err
			continue
		}

		if err := e.ValidatePackage(dest); err != nil {
			lastErr = err
			continue
		}

		e.logger.Info("package downloaded", "path", dest)
		return dest, nil
	}

	return "", fmt.Errorf("failed to obtain package from %s after %d attempts: %w", src.Name, attempts, lastErr)
}

// ValidatePackage checks that path is a zip holding the required entry
func (e *Engine) ValidatePackage(path string) error {
	if err := fetch.CheckZip(path); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}

	enc, err := e.filenameEncoding()
	if err != nil {
		return err
	}

	r, err := archive.Open(path, enc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	defer func() {
		_ = r.Close()
	}()

	if required := e.cfg.Install.RequiredEntry; required != "" && !r.Contains(required) {
		return fmt.Errorf("%w: %s has no entry matching %q", ErrInvalidPackage, path, required)
	}

	return nil
}

// Apply extracts the package into target, overwriting existing files
func (e *Engine) Apply(ctx context.Context, pkg, target string) (int, error) {
	enc, err := e.filenameEncoding()
	if err != nil {
		return 0, err
	}

	r, err := archive.Open(pkg, enc)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = r.Close()
	}()

	e.logger.Info("extracting package", "package", pkg, "target", target)
	n, err := r.ExtractAll(ctx, target)
	if err != nil {
		return n, fmt.Errorf("failed to extract package: %w", err)
	}

	e.logger.Info("package applied", "files", n)
	return n, nil
}

// Launch starts the configured launcher inside target
func (e *Engine) Launch(ctx context.Context, target string) error {
	if e.cfg.Install.Launch == "" {
		return nil
	}

	path := filepath.Join(target, e.cfg.Install.Launch)
	e.logger.Info("launching", "path", path)
	if err := e.launcher.Start(ctx, path, target); err != nil {
		return fmt.Errorf("failed to launch: %w", err)
	}
	return nil
}

func (e *Engine) filenameEncoding() (encoding.Encoding, error) {
	if e.cfg.Install.FilenameEncoding == "" {
		return nil, nil
	}
	return archive.LookupEncoding(e.cfg.Install.FilenameEncoding)
}
