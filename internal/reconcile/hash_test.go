package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaermu/treepack/internal/config"
	"github.com/schaermu/treepack/internal/testutil"
)

func TestHashFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test.txt"), []byte("hello"), 0644))
	fs := osfs.New(tmpDir)

	hash1, err := HashFile(fs, "test.txt", config.HashSHA256)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash1)

	// Default algorithm is sha256
	hash2, err := HashFile(fs, "test.txt", "")
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)

	// Verify hash changes when content changes
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test.txt"), []byte("hellO"), 0644))
	hash3, err := HashFile(fs, "test.txt", config.HashSHA256)
	require.NoError(t, err)
	assert.NotEqual(t, hash1, hash3)
}

func TestHashFile_XXH3(t *testing.T) {
	fs := memTree(t, map[string]string{"a": "payload", "b": "payload", "c": "payloae"})

	a, err := HashFile(fs, "a", config.HashXXH3)
	require.NoError(t, err)
	b, err := HashFile(fs, "b", config.HashXXH3)
	require.NoError(t, err)
	c, err := HashFile(fs, "c", config.HashXXH3)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestHashFile_Errors(t *testing.T) {
	fs := memTree(t, map[string]string{"a": "x"})

	_, err := HashFile(fs, "missing", config.HashSHA256)
	assert.Error(t, err)

	_, err = HashFile(fs, "a", "md5")
	assert.Error(t, err)
}

func TestScanTree_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"real.txt": "x", "dir/inner.txt": "y"})
	if err := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "dir"), filepath.Join(root, "dirlink")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	snap, err := ScanTree(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/inner.txt", "real.txt"}, snap.Paths())
}
