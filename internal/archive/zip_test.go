package archive

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFiles creates the given files (name -> content) under dir.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
}

// entryNames returns the sorted entry names of a zip archive.
func entryNames(t *testing.T, archivePath string) []string {
	t.Helper()
	r, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestPack_RelativeEntryNames(t *testing.T) {
	srcDir := t.TempDir()
	writeFiles(t, srcDir, map[string]string{
		"frame_00000.jpg":        "a",
		"frame_00001.jpg":        "b",
		"nested/frame_00002.jpg": "c",
	})

	archivePath := filepath.Join(t.TempDir(), "frames.zip")
	p := NewZipPackager()
	require.NoError(t, p.Pack(context.Background(), srcDir, archivePath))

	assert.Equal(t, []string{
		"frame_00000.jpg",
		"frame_00001.jpg",
		"nested/frame_00002.jpg",
	}, entryNames(t, archivePath))
}

func TestPack_ContentsPreserved(t *testing.T) {
	srcDir := t.TempDir()
	writeFiles(t, srcDir, map[string]string{"data.bin": "frame bytes"})

	archivePath := filepath.Join(t.TempDir(), "out.zip")
	require.NoError(t, NewZipPackager().Pack(context.Background(), srcDir, archivePath))

	r, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	defer r.Close()

	require.Len(t, r.File, 1)
	assert.Equal(t, zip.Deflate, r.File[0].Method)

	rc, err := r.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()

	buf := make([]byte, 64)
	n, _ := rc.Read(buf)
	assert.Equal(t, "frame bytes", string(buf[:n]))
}

func TestPack_Deterministic(t *testing.T) {
	srcDir := t.TempDir()
	writeFiles(t, srcDir, map[string]string{
		"frame_00000.jpg": "x",
		"frame_00001.jpg": "y",
		"frame_00002.jpg": "z",
	})

	tmpDir := t.TempDir()
	first := filepath.Join(tmpDir, "first.zip")
	second := filepath.Join(tmpDir, "second.zip")

	p := NewZipPackager()
	require.NoError(t, p.Pack(context.Background(), srcDir, first))
	require.NoError(t, p.Pack(context.Background(), srcDir, second))

	// Re-packing the same directory yields the same entry set.
	assert.Equal(t, entryNames(t, first), entryNames(t, second))
}

func TestPack_EmptyDirectory(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "empty.zip")
	require.NoError(t, NewZipPackager().Pack(context.Background(), t.TempDir(), archivePath))

	assert.Empty(t, entryNames(t, archivePath))
}

func TestPack_MissingSourceDir(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "out.zip")
	err := NewZipPackager().Pack(context.Background(), "/nonexistent/dir", archivePath)

	var pkgErr *PackagingError
	require.True(t, errors.As(err, &pkgErr), "expected *PackagingError, got %T", err)
}

func TestPack_CancelledContext(t *testing.T) {
	srcDir := t.TempDir()
	writeFiles(t, srcDir, map[string]string{"a.jpg": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewZipPackager().Pack(ctx, srcDir, filepath.Join(t.TempDir(), "out.zip"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
