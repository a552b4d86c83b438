// Package archive packages a directory of files into a compressed zip archive.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// PackagingError represents a failed archive build.
type PackagingError struct {
	SourceDir string
	Err       error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("package %s: %v", e.SourceDir, e.Err)
}

func (e *PackagingError) Unwrap() error {
	return e.Err
}

// Packager builds a single archive from a directory of files.
type Packager interface {
	// Pack walks sourceDir recursively and writes every regular file into
	// a deflate-compressed zip at archivePath, named by its path relative
	// to sourceDir. On failure the output file must not be treated as a
	// valid archive by the caller.
	Pack(ctx context.Context, sourceDir, archivePath string) error
}

// ZipPackager implements Packager using archive/zip.
type ZipPackager struct{}

// NewZipPackager creates a new ZipPackager.
func NewZipPackager() *ZipPackager {
	return &ZipPackager{}
}

// Pack builds a zip archive from the contents of sourceDir.
func (z *ZipPackager) Pack(ctx context.Context, sourceDir, archivePath string) error {
	if err := z.pack(ctx, sourceDir, archivePath); err != nil {
		return &PackagingError{SourceDir: sourceDir, Err: err}
	}
	return nil
}

func (z *ZipPackager) pack(ctx context.Context, sourceDir, archivePath string) error {
	out, err := os.Create(archivePath) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer func() { _ = out.Close() }()

	zw := zip.NewWriter(out)

	err = filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}

		return addFile(zw, path, filepath.ToSlash(rel))
	})
	if err != nil {
		_ = zw.Close()
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return out.Close()
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path) // #nosec G304 - path comes from the walked source directory
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(w, f)
	return err
}
