// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP response helpers.
//
// ReadResponse, DecodeResponse and ErrorBody cap every read so that a
// misbehaving server cannot make the client allocate without limit. They
// are meant for small JSON bodies and error diagnostics. Result archives
// are streamed to disk with io.Copy instead.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize bounds JSON response body reads: 16 MB. Version,
// submission and status bodies are a few hundred bytes.
const MaxResponseSize int64 = 16 << 20

// MaxErrorBodySize bounds how much of a failed response is kept for an
// error message.
const MaxErrorBodySize int64 = 4 << 10

// maxDrainSize bounds how much of an unwanted body is discarded before
// closing it. Bodies larger than this are closed without draining, which
// costs the keep-alive connection but nothing else.
const maxDrainSize int64 = 256 << 10

// ReadResponse reads a JSON response body up to MaxResponseSize bytes.
// Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a JSON response body (up to MaxResponseSize
// bytes) and decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads up to MaxErrorBodySize bytes of a failed response for
// use in an error message. Read errors are ignored; a partial body is
// still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxErrorBodySize))
	return string(data)
}

// DrainAndClose discards a bounded amount of body and closes it so the
// underlying connection can be reused for the next request.
func DrainAndClose(body io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrainSize))
	return body.Close()
}
