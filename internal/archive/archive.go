// Package archive packs and unpacks game bundles. Bundles travel as zip
// archives; callers treat them as opaque blobs.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrUnsafePath is returned when an archive entry would escape the target directory.
	ErrUnsafePath = errors.New("archive: entry escapes destination")
	// ErrTooLarge is returned when the unpacked contents exceed the extraction limit.
	ErrTooLarge = errors.New("archive: unpacked size exceeds limit")
)

// Extract unpacks the archive at archivePath into dest, creating it if needed.
// At most limit bytes are written across all entries; limit <= 0 disables the
// check.
func Extract(archivePath, dest string, limit int64) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("archive: open: %w", err)
	}
	defer func() { _ = r.Close() }()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	remaining := limit
	for _, f := range r.File {
		n, err := extractFile(f, dest, remaining, limit > 0)
		if err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

// extractFile writes one entry and returns the bytes written
func extractFile(f *zip.File, dest string, remaining int64, limited bool) (int64, error) {
	target, err := safeJoin(dest, f.Name)
	if err != nil {
		return 0, err
	}

	if f.FileInfo().IsDir() {
		return 0, os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}

	src, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("archive: open %s: %w", f.Name, err)
	}
	defer func() { _ = src.Close() }()

	var in io.Reader = src
	if limited {
		// One byte past the limit is enough to detect overflow
		in = io.LimitReader(src, remaining+1)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return n, fmt.Errorf("archive: write %s: %w", f.Name, err)
	}
	if limited && n > remaining {
		_ = out.Close()
		return n, fmt.Errorf("%w: %s", ErrTooLarge, f.Name)
	}
	return n, out.Close()
}

func safeJoin(dest, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return filepath.Join(dest, cleaned), nil
}

// Pack zips the contents of dir, with entry names relative to dir.
func Pack(dir string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate

		fw, err := w.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		_, err = io.Copy(fw, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("archive: pack %s: %w", dir, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PackFiles zips an in-memory file set. Names use forward slashes.
func PackFiles(files map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		hdr.SetMode(0o644)
		fw, err := w.CreateHeader(hdr)
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(fw, content); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
