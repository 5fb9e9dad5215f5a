// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer holds one credential, typically the job service bearer token,
// in a locked region outside the Go heap. Do not copy a Buffer. Reading
// it after Close panics; Len reports zero.
type Buffer struct {
	mu sync.Mutex
	// region is nil once the buffer is closed.
	region []byte
}

// New returns a zero-filled Buffer of size bytes.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size must be positive, got %d", size)
	}
	region, err := lockRegion(size)
	if err != nil {
		return nil, err
	}
	return &Buffer{region: region}, nil
}

// NewFromBytes moves source into a new Buffer: the bytes are copied
// into the locked region and source is zeroed, whether or not the
// allocation succeeds.
func NewFromBytes(source []byte) (*Buffer, error) {
	defer Zero(source)
	if len(source) == 0 {
		return nil, errors.New("secret: cannot create buffer from empty source")
	}
	buffer, err := New(len(source))
	if err != nil {
		return nil, err
	}
	copy(buffer.region, source)
	return buffer, nil
}

// Bytes returns the locked region itself. The slice must not be kept
// past Close.
func (buffer *Buffer) Bytes() []byte {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	return buffer.openRegion()
}

// String returns a heap copy of the secret.
func (buffer *Buffer) String() string {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	return string(buffer.openRegion())
}

// HeaderValue returns scheme, a space and the secret as one heap
// string, the form of an Authorization header value. The copy lives
// only as long as the request that carries it.
func (buffer *Buffer) HeaderValue(scheme string) string {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	region := buffer.openRegion()

	var value strings.Builder
	value.Grow(len(scheme) + 1 + len(region))
	value.WriteString(scheme)
	value.WriteByte(' ')
	value.Write(region)
	return value.String()
}

// Len returns the secret's length, or zero after Close.
func (buffer *Buffer) Len() int {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	return len(buffer.region)
}

// Close scrubs and releases the region. Calling it again does nothing.
func (buffer *Buffer) Close() error {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	if buffer.region == nil {
		return nil
	}
	region := buffer.region
	buffer.region = nil
	return releaseRegion(region)
}

func (buffer *Buffer) openRegion() []byte {
	if buffer.region == nil {
		panic("secret: buffer used after Close")
	}
	return buffer.region
}

// lockRegion maps size anonymous bytes, pins them in RAM so the token
// never reaches swap and marks them MADV_DONTDUMP so a crashing client
// does not write it into a core file.
func lockRegion(size int) ([]byte, error) {
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	if err := unix.Mlock(region); err != nil {
		unix.Munmap(region)
		return nil, fmt.Errorf("secret: mlock: %w", err)
	}
	if err := unix.Madvise(region, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(region)
		unix.Munmap(region)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP): %w", err)
	}
	return region, nil
}

// releaseRegion zeroes region before giving it back to the kernel.
func releaseRegion(region []byte) error {
	Zero(region)
	unlockErr := unix.Munlock(region)
	unmapErr := unix.Munmap(region)
	if unlockErr != nil {
		return fmt.Errorf("secret: munlock: %w", unlockErr)
	}
	if unmapErr != nil {
		return fmt.Errorf("secret: munmap: %w", unmapErr)
	}
	return nil
}

// Zero overwrites data with zero bytes.
func Zero(data []byte) {
	clear(data)
}
