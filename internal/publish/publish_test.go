package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaermu/treepack/internal/config"
	"github.com/schaermu/treepack/internal/testutil"
)

type upload struct {
	local  string
	object string
}

// mockUploader implements Uploader for testing.
type mockUploader struct {
	failOn  string
	uploads []upload
}

func (m *mockUploader) Upload(_ context.Context, localPath, objectName string) error {
	if objectName == m.failOn {
		return errors.New("upload rejected")
	}
	m.uploads = append(m.uploads, upload{local: localPath, object: objectName})
	return nil
}

func writeArchives(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("PK\x05\x06"), 0644))
		paths = append(paths, p)
	}
	return paths
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		prefix string
		local  string
		want   string
	}{
		{"", "/out/a.zip", "a.zip"},
		{"builds", "/out/a.zip", "builds/a.zip"},
		{"/builds/nightly/", "output/b.zip", "builds/nightly/b.zip"},
	}

	for _, tt := range tests {
		p := NewPublisher(&mockUploader{}, tt.prefix, testutil.Logger())
		assert.Equal(t, tt.want, p.ObjectName(tt.local))
	}
}

func TestPublish(t *testing.T) {
	paths := writeArchives(t, "a.zip", "b.zip")
	uploader := &mockUploader{}

	objects, err := NewPublisher(uploader, "diffs", testutil.Logger()).Publish(context.Background(), paths)
	require.NoError(t, err)

	assert.Equal(t, []string{"diffs/a.zip", "diffs/b.zip"}, objects)
	assert.Equal(t, []upload{
		{local: paths[0], object: "diffs/a.zip"},
		{local: paths[1], object: "diffs/b.zip"},
	}, uploader.uploads)
}

func TestPublish_StopsOnFailure(t *testing.T) {
	paths := writeArchives(t, "a.zip", "b.zip", "c.zip")
	uploader := &mockUploader{failOn: "b.zip"}

	objects, err := NewPublisher(uploader, "", testutil.Logger()).Publish(context.Background(), paths)
	require.Error(t, err)
	assert.Equal(t, []string{"a.zip"}, objects)
	assert.Len(t, uploader.uploads, 1)
}

func TestPublish_MissingArchive(t *testing.T) {
	uploader := &mockUploader{}
	_, err := NewPublisher(uploader, "", testutil.Logger()).Publish(context.Background(), []string{filepath.Join(t.TempDir(), "nope.zip")})
	require.Error(t, err)
	assert.Empty(t, uploader.uploads)
}

func TestPublish_RejectsDirectory(t *testing.T) {
	_, err := NewPublisher(&mockUploader{}, "", testutil.Logger()).Publish(context.Background(), []string{t.TempDir()})
	assert.Error(t, err)
}

func TestNewMinioUploader(t *testing.T) {
	dir := t.TempDir()
	accessFile := filepath.Join(dir, "access")
	secretFile := filepath.Join(dir, "secret")
	require.NoError(t, os.WriteFile(accessFile, []byte("  AKIDEXAMPLE\n"), 0600))
	require.NoError(t, os.WriteFile(secretFile, []byte("s3cr3t\n"), 0600))

	insecure := false
	cfg := config.PublishConfig{
		Endpoint:      "localhost:9000",
		Bucket:        "archives",
		Secure:        &insecure,
		AccessKeyFile: accessFile,
		SecretKeyFile: secretFile,
	}

	u, err := NewMinioUploader(cfg)
	require.NoError(t, err)
	assert.Equal(t, "archives", u.bucket)
	assert.Equal(t, "localhost:9000", u.client.EndpointURL().Host)
	assert.Equal(t, "http", u.client.EndpointURL().Scheme)
}

func TestNewMinioUploader_Errors(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	require.NoError(t, os.WriteFile(keyFile, []byte("key"), 0600))

	tests := []struct {
		name string
		cfg  config.PublishConfig
	}{
		{"disabled", config.PublishConfig{}},
		{"missing access key file", config.PublishConfig{Endpoint: "localhost:9000", Bucket: "b", AccessKeyFile: filepath.Join(dir, "nope"), SecretKeyFile: keyFile}},
		{"unset secret key file", config.PublishConfig{Endpoint: "localhost:9000", Bucket: "b", AccessKeyFile: keyFile}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMinioUploader(tt.cfg)
			assert.Error(t, err)
		})
	}

	_, err := NewMinioUploader(config.PublishConfig{})
	assert.ErrorIs(t, err, ErrDisabled)
}
