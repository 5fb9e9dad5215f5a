// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// ReadFile loads the first line of path, without surrounding
// whitespace, into a Buffer. The rest of the file is ignored so token
// files may carry a trailing comment line. The bytes read from disk are
// zeroed before returning.
func ReadFile(path string) (*Buffer, error) {
	if path == "" {
		return nil, errors.New("secret: no file given")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	defer Zero(data)

	line, _, _ := bytes.Cut(data, []byte("\n"))
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, fmt.Errorf("secret: %s is empty", path)
	}
	return NewFromBytes(line)
}
