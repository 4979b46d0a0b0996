// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// ZipEntry is one entry written by WriteZip. Names are stored byte for byte;
// a name ending in "/" creates a directory entry.
type ZipEntry struct {
	Name    string
	Content string
	NonUTF8 bool // leave the UTF-8 flag unset
}

// Logger returns a logger that only reports errors
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// WriteTree creates files (slash-separated relative path -> content) under root
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// WriteZip writes an archive holding entries to path
func WriteZip(t testing.TB, path string, entries []ZipEntry) {
	t.Helper()
	if err := writeZip(path, entries); err != nil {
		t.Fatal(err)
	}
}

func writeZip(path string, entries []ZipEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate, NonUTF8: e.NonUTF8})
		if err != nil {
			_ = f.Close()
			return err
		}
		if _, err := w.Write([]byte(e.Content)); err != nil {
			_ = f.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadZip returns entry name -> content for the archive at path
func ReadZip(t testing.TB, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = zr.Close()
	}()

	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		if err != nil {
			_ = rc.Close()
			t.Fatalf("%s: %v", f.Name, err)
		}
		_ = rc.Close()
		out[f.Name] = string(data)
	}
	return out
}

// FindProjectRoot walks up the directory tree from the caller's file to find go.mod
func FindProjectRoot() (string, error) {
	// Get the directory of the caller's source file
	_, filename, _, ok := runtime.Caller(1)
	if !ok {
		return "", fmt.Errorf("failed to get caller information")
	}

	dir := filepath.Dir(filename)

	// Walk up the directory tree looking for go.mod
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the root without finding go.mod
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}
