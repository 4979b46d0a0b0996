// Package fetch downloads the conversion package from a mirror.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// fileMode is the permission of downloaded packages
const fileMode os.FileMode = 0644

var (
	// ErrUnexpectedStatus is returned when the mirror does not answer 200 OK
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	// ErrNotZip is returned when the downloaded body is not a zip archive
	ErrNotZip = errors.New("downloaded file is not a zip archive")
)

// Client downloads a remote file to a local path
type Client interface {
	// Download fetches url and stores the body at dest, replacing any
	// existing file
	Download(ctx context.Context, url, dest string) error
}

// HTTPClient implements Client over plain HTTP(S)
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates a client honouring the proxy environment variables
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
			},
		},
	}
}

// Download performs a GET request and writes the body atomically to dest
func (c *HTTPClient) Download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %s", ErrUnexpectedStatus, url, resp.Status)
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".treepack-download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Set permissions on temp file
	if err := tmpFile.Chmod(fileMode); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to set download permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to write download: %w", err)
	}

	if err := CheckZip(tmpPath); err != nil {
		return err
	}

	// Atomic rename
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	return nil
}

// CheckZip sniffs the content of path and fails with ErrNotZip unless it is
// a zip archive or a zip-based format
func CheckZip(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to detect content type of %s: %w", path, err)
	}

	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return nil
		}
	}

	return fmt.Errorf("%w: %s is %s", ErrNotZip, path, mtype.String())
}
