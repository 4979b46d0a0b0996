// Package launch starts external programs on behalf of the installer.
package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// ErrNotExecutable is returned when the program does not exist or is a
// directory
var ErrNotExecutable = errors.New("program not found")

// Launcher starts a program without waiting for it to exit
type Launcher interface {
	// Start launches path with dir as working directory
	Start(ctx context.Context, path, dir string, args ...string) error
}

// ExecLauncher implements Launcher using os/exec
type ExecLauncher struct{}

// NewExecLauncher creates a new exec launcher
func NewExecLauncher() *ExecLauncher {
	return &ExecLauncher{}
}

// Start launches the program and releases it. The context only bounds the
// start itself; the program keeps running after treepack exits.
func (l *ExecLauncher) Start(ctx context.Context, path, dir string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotExecutable, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrNotExecutable, path)
	}

	cmd := exec.Command(path, args...)
	cmd.Dir = dir
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", path, err)
	}

	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("failed to release %s: %w", path, err)
	}
	return nil
}
