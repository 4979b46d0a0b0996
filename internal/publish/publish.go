// Package publish uploads produced archives to S3-compatible storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/schaermu/treepack/internal/config"
)

// ErrDisabled is returned when no endpoint is configured
var ErrDisabled = errors.New("publishing is disabled (publish.endpoint is empty)")

const contentType = "application/zip"

// Uploader stores a local file under an object name
type Uploader interface {
	Upload(ctx context.Context, localPath, objectName string) error
}

// MinioUploader implements Uploader with the minio client
type MinioUploader struct {
	client *minio.Client
	bucket string
}

// NewMinioUploader creates an uploader from the publish configuration.
// Credentials are read from the configured files.
func NewMinioUploader(cfg config.PublishConfig) (*MinioUploader, error) {
	if cfg.Endpoint == "" {
		return nil, ErrDisabled
	}

	accessKey, err := readSecret(cfg.AccessKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read access key: %w", err)
	}
	secretKey, err := readSecret(cfg.SecretKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret key: %w", err)
	}

	secure := true
	if cfg.Secure != nil {
		secure = *cfg.Secure
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &MinioUploader{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// Upload stores localPath as objectName in the configured bucket
func (u *MinioUploader) Upload(ctx context.Context, localPath, objectName string) error {
	_, err := u.client.FPutObject(ctx, u.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to %s/%s: %w", localPath, u.bucket, objectName, err)
	}
	return nil
}

// readSecret reads a credential file, trimming surrounding whitespace
func readSecret(path string) (string, error) {
	if path == "" {
		return "", errors.New("no credential file configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Publisher uploads archives below a common prefix
type Publisher struct {
	uploader Uploader
	prefix   string
	logger   *slog.Logger
}

// NewPublisher creates a new publisher
func NewPublisher(uploader Uploader, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{
		uploader: uploader,
		prefix:   strings.Trim(prefix, "/"),
		logger:   logger,
	}
}

// ObjectName returns the object name localPath is stored under
func (p *Publisher) ObjectName(localPath string) string {
	return path.Join(p.prefix, filepath.Base(localPath))
}

// Publish uploads every path. It stops at the first failure and returns the
// object names uploaded so far.
func (p *Publisher) Publish(ctx context.Context, paths []string) ([]string, error) {
	uploaded := make([]string, 0, len(paths))
	for _, local := range paths {
		if err := ctx.Err(); err != nil {
			return uploaded, err
		}

		info, err := os.Stat(local)
		if err != nil {
			return uploaded, fmt.Errorf("failed to stat archive: %w", err)
		}
		if !info.Mode().IsRegular() {
			return uploaded, fmt.Errorf("%s is not a regular file", local)
		}

		object := p.ObjectName(local)
		p.logger.Info("uploading archive", "path", local, "object", object, "size", info.Size())
		if err := p.uploader.Upload(ctx, local, object); err != nil {
			return uploaded, err
		}
		uploaded = append(uploaded, object)
	}

	p.logger.Info("publish complete", "archives", len(uploaded))
	return uploaded, nil
}
