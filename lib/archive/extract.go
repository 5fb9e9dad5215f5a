// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// Options bounds an extraction.
type Options struct {
	// MaxBytes caps the total size of extracted regular files. Zero
	// means no limit.
	MaxBytes int64
}

// ExtractTarGzFile extracts the archive at path into destination. See
// ExtractTarGz.
func ExtractTarGzFile(path, destination string, options Options) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: opening %s: %w", path, err)
	}
	defer file.Close()

	members, err := ExtractTarGz(file, destination, options)
	var readError *ReadError
	if errors.As(err, &readError) && readError.Path == "" {
		readError.Path = path
	}
	return members, err
}

// ExtractTarGz reads a gzip-compressed tar stream and writes its
// directories and regular files under destination, creating destination
// if needed. It returns the slash-separated names of the regular files
// written, in archive order.
//
// Members already extracted are left in place when a later member
// fails; destination belongs to the caller.
func ExtractTarGz(source io.Reader, destination string, options Options) ([]string, error) {
	gzipReader, err := gzip.NewReader(source)
	if err != nil {
		return nil, &ReadError{Err: err}
	}
	defer gzipReader.Close()

	if err := os.MkdirAll(destination, 0o755); err != nil {
		return nil, fmt.Errorf("archive: creating destination %s: %w", destination, err)
	}

	tarReader := tar.NewReader(gzipReader)
	var members []string
	var written int64

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return members, nil
		}
		if err != nil {
			return members, &ReadError{Err: err}
		}

		name := filepath.Clean(filepath.FromSlash(header.Name))
		if name == "." {
			continue
		}
		if !filepath.IsLocal(name) {
			return members, &UnsafeEntryError{Name: header.Name, Reason: "path escapes destination"}
		}
		target := filepath.Join(destination, name)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return members, fmt.Errorf("archive: creating directory %s: %w", target, err)
			}

		case tar.TypeReg:
			var limit int64 = -1
			if options.MaxBytes > 0 {
				limit = options.MaxBytes - written
			}
			count, err := writeMember(tarReader, target, header.FileInfo().Mode().Perm()|0o600, limit)
			written += count
			if err != nil {
				return members, err
			}
			members = append(members, filepath.ToSlash(name))

		case tar.TypeXGlobalHeader:
			// PAX global headers carry metadata only.

		case tar.TypeSymlink, tar.TypeLink:
			return members, &UnsafeEntryError{Name: header.Name, Reason: "link entries are not extracted"}

		default:
			return members, &UnsafeEntryError{Name: header.Name, Reason: fmt.Sprintf("unsupported entry type %q", header.Typeflag)}
		}
	}
}

// writeMember copies one regular file out of the tar stream. A negative
// limit means unlimited.
func writeMember(source io.Reader, target string, mode os.FileMode, limit int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("archive: creating directory for %s: %w", target, err)
	}

	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, fmt.Errorf("archive: creating %s: %w", target, err)
	}

	tracked := &trackingReader{reader: source}
	var count int64
	if limit < 0 {
		count, err = io.Copy(file, tracked)
	} else {
		count, err = io.CopyN(file, tracked, limit+1)
		if err == io.EOF {
			err = nil
		} else if err == nil {
			err = ErrTooLarge
		}
	}
	closeErr := file.Close()

	switch {
	case err == nil && closeErr != nil:
		return count, fmt.Errorf("archive: closing %s: %w", target, closeErr)
	case err == nil, errors.Is(err, ErrTooLarge):
		return count, err
	case tracked.err != nil && err == tracked.err:
		// Truncated member data or a corrupt compressed stream.
		return count, &ReadError{Err: err}
	default:
		return count, fmt.Errorf("archive: writing %s: %w", target, err)
	}
}

// trackingReader remembers the last non-EOF error returned by the
// underlying reader so read failures can be told apart from write
// failures after io.Copy.
type trackingReader struct {
	reader io.Reader
	err    error
}

func (reader *trackingReader) Read(buffer []byte) (int, error) {
	count, err := reader.reader.Read(buffer)
	if err != nil && err != io.EOF {
		reader.err = err
	}
	return count, err
}
