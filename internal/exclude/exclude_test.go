package exclude

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipDir(t *testing.T) {
	p := MustNew([]string{"profile", "res_mods/1.0", `updates\`}, nil)

	tests := []struct {
		rel  string
		want bool
	}{
		{"profile", true},
		{"nested/profile", true},
		{"nested/profile/deeper", true},
		{"profile2", false},
		{"my_profile", false},
		{"profiles/x", false},
		{"res_mods/1.0", true},
		{"res_mods/1.0/gui", true},
		{"res_mods/1.01", false},
		{"res_mods", false},
		{"x/res_mods/1.0", false},
		{"updates", true},
		{"", false},
		{".", false},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, p.SkipDir(tt.rel))
		})
	}
}

func TestSkipFile(t *testing.T) {
	p := MustNew([]string{"profile"}, []string{"*.tmp", "*.log", "exclude_file.txt", "cache_?.bin"})

	tests := []struct {
		rel  string
		want bool
	}{
		{"a.tmp", true},
		{"deep/dir/b.log", true},
		{"exclude_file.txt", true},
		{"sub/exclude_file.txt", true},
		{"exclude_file.txt.bak", false},
		{"cache_1.bin", true},
		{"cache_12.bin", false},
		{"log", false},
		{"tmp.txt", false},
		// directory literals never match files
		{"profile", false},
		{"profile/save.dat", true},
		{"x/profile/save.dat", true},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, p.SkipFile(tt.rel))
		})
	}
}

func TestSkipFile_Backslashes(t *testing.T) {
	p := MustNew([]string{"a"}, nil)

	// A backslash is part of the name unless the OS uses it as separator
	want := filepath.Separator == '\\'
	assert.Equal(t, want, p.SkipFile(`a\b.txt`))
	assert.Equal(t, want, p.SkipDir(`x\a`))
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(nil, []string{"[unclosed"}, "")
	require.Error(t, err)
}

func TestNew_MissingIgnoreFile(t *testing.T) {
	_, err := New(nil, nil, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestIgnoreFile(t *testing.T) {
	ignorePath := filepath.Join(t.TempDir(), ".treepackignore")
	content := "# comment\n*.bak\ncache/\n/top.txt\n"
	require.NoError(t, os.WriteFile(ignorePath, []byte(content), 0644))

	p, err := New(nil, nil, ignorePath)
	require.NoError(t, err)

	assert.True(t, p.SkipFile("a.bak"))
	assert.True(t, p.SkipFile("x/y/a.bak"))
	assert.True(t, p.SkipDir("cache"))
	assert.True(t, p.SkipDir("x/cache"))
	assert.True(t, p.SkipFile("cache/data.bin"))
	assert.True(t, p.SkipFile("top.txt"))
	assert.False(t, p.SkipFile("x/top.txt"))
	assert.False(t, p.SkipFile("keep.txt"))
	assert.False(t, p.SkipDir("caches"))
}

func TestNone(t *testing.T) {
	p := None()

	assert.False(t, p.SkipDir("profile"))
	assert.False(t, p.SkipFile("a.tmp"))
	assert.Empty(t, p.Dirs())
	assert.Empty(t, p.Patterns())
}

func TestAccessorsReturnCopies(t *testing.T) {
	p := MustNew([]string{"a", "b"}, []string{"*.x"})

	dirs := p.Dirs()
	dirs[0] = "mutated"

	assert.Equal(t, []string{"a", "b"}, p.Dirs())
	assert.Equal(t, []string{"*.x"}, p.Patterns())
}
