// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"errors"
	"fmt"
)

// ReadError reports that the source could not be read as a
// gzip-compressed tar archive.
type ReadError struct {
	// Path is the archive file, empty when extracting from a stream.
	Path string

	Err error
}

func (err *ReadError) Error() string {
	if err.Path == "" {
		return fmt.Sprintf("archive: reading gzip-tar stream: %v", err.Err)
	}
	return fmt.Sprintf("archive: reading gzip-tar %s: %v", err.Path, err.Err)
}

func (err *ReadError) Unwrap() error { return err.Err }

// UnsafeEntryError reports a member that would escape the destination
// directory or that has a type extraction does not support.
type UnsafeEntryError struct {
	Name   string
	Reason string
}

func (err *UnsafeEntryError) Error() string {
	return fmt.Sprintf("archive: refusing member %q: %s", err.Name, err.Reason)
}

// ErrTooLarge is returned when the extracted content exceeds
// Options.MaxBytes.
var ErrTooLarge = errors.New("archive: extracted content exceeds size limit")

// IsReadError reports whether err is (or wraps) a *ReadError.
func IsReadError(err error) bool {
	var readError *ReadError
	return errors.As(err, &readError)
}
