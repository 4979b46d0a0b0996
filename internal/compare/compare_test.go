package compare

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaermu/treepack/internal/config"
	"github.com/schaermu/treepack/internal/reconcile"
	"github.com/schaermu/treepack/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Compare.OutputDir = filepath.Join(t.TempDir(), "output")
	cfg.Compare.Workers = 2
	return cfg
}

func TestEngine_Run(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	testutil.WriteTree(t, dirA, map[string]string{
		"bin/game.exe":     "v1",
		"res/only_a.xml":   "a",
		"common.txt":       "same",
		"profile/user.xml": "ignored",
		"python.log":       "ignored",
	})
	testutil.WriteTree(t, dirB, map[string]string{
		"bin/game.exe": "v2",
		"only_b.txt":   "b",
		"common.txt":   "same",
		"replays/1.rp": "ignored",
	})

	cfg := testConfig(t)
	report, err := NewEngine(cfg, testutil.Logger()).Run(context.Background(), dirA, dirB)
	require.NoError(t, err)

	assert.Equal(t, []string{"res/only_a.xml"}, report.Result.OnlyInA)
	assert.Equal(t, []string{"only_b.txt"}, report.Result.OnlyInB)
	assert.Equal(t, []string{"bin/game.exe"}, report.Result.Differing)
	assert.Equal(t, []string{"common.txt"}, report.Result.Matching)

	assert.Equal(t, cfg.ArchivePathA(), report.ArchiveA.Path)
	assert.Equal(t, cfg.ArchivePathB(), report.ArchiveB.Path)

	assert.Equal(t, map[string]string{
		"bin/game.exe":   "v1",
		"res/only_a.xml": "a",
	}, testutil.ReadZip(t, cfg.ArchivePathA()))
	assert.Equal(t, map[string]string{
		"bin/game.exe": "v2",
		"only_b.txt":   "b",
	}, testutil.ReadZip(t, cfg.ArchivePathB()))
}

func TestEngine_Run_IdenticalTrees(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	testutil.WriteTree(t, dirA, map[string]string{"f.txt": "hello"})
	testutil.WriteTree(t, dirB, map[string]string{"f.txt": "hello"})

	cfg := testConfig(t)
	report, err := NewEngine(cfg, testutil.Logger()).Run(context.Background(), dirA, dirB)
	require.NoError(t, err)

	assert.True(t, report.Result.Empty())
	assert.Empty(t, testutil.ReadZip(t, cfg.ArchivePathA()))
	assert.Empty(t, testutil.ReadZip(t, cfg.ArchivePathB()))
}

func TestEngine_Run_InvalidRootWritesNothing(t *testing.T) {
	dirA := t.TempDir()
	cfg := testConfig(t)

	_, err := NewEngine(cfg, testutil.Logger()).Run(context.Background(), dirA, filepath.Join(dirA, "missing"))
	require.ErrorIs(t, err, reconcile.ErrNotDirectory)

	_, statErr := os.Stat(cfg.Compare.OutputDir)
	assert.True(t, os.IsNotExist(statErr), "output directory must not be created")
}

func TestEngine_Run_XXH3(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	testutil.WriteTree(t, dirA, map[string]string{"x.bin": "one", "y.bin": "same"})
	testutil.WriteTree(t, dirB, map[string]string{"x.bin": "two", "y.bin": "same"})

	cfg := testConfig(t)
	cfg.Compare.Hash = config.HashXXH3
	report, err := NewEngine(cfg, testutil.Logger()).Run(context.Background(), dirA, dirB)
	require.NoError(t, err)

	assert.Equal(t, []string{"x.bin"}, report.Result.Differing)
}

func TestEngine_Policy(t *testing.T) {
	ignoreFile := filepath.Join(t.TempDir(), ".treepackignore")
	require.NoError(t, os.WriteFile(ignoreFile, []byte("*.bak\n"), 0644))

	cfg := testConfig(t)
	cfg.Compare.IgnoreFile = ignoreFile

	policy, err := NewEngine(cfg, testutil.Logger()).Policy()
	require.NoError(t, err)

	dirs := policy.Dirs()
	sort.Strings(dirs)
	assert.Contains(t, dirs, "profile")
	assert.True(t, policy.SkipFile("save.bak"))
	assert.True(t, policy.SkipFile("crash.log"))
	assert.False(t, policy.SkipFile("game.exe"))

	cfg.Compare.ExcludePatterns = []string{"[broken"}
	_, err = NewEngine(cfg, testutil.Logger()).Policy()
	assert.Error(t, err)
}

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	err := WriteResult(&buf, &reconcile.Result{
		OnlyInA:   []string{"a.txt"},
		OnlyInB:   []string{"b.txt", "c/d.txt"},
		Differing: []string{},
	})
	require.NoError(t, err)

	want := "A has, B lacks:\n" +
		"a.txt\n" +
		"B has, A lacks:\n" +
		"b.txt\n" +
		"c/d.txt\n" +
		"present in both, differing:\n"
	assert.Equal(t, want, buf.String())
}
