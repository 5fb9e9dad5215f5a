// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewFromBytes_ZeroesSource(t *testing.T) {
	source := []byte("bearer-token-value")
	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "bearer-token-value" {
		t.Errorf("String() = %q", got)
	}
	if buffer.Len() != len("bearer-token-value") {
		t.Errorf("Len() = %d", buffer.Len())
	}
	for index, value := range source {
		if value != 0 {
			t.Fatalf("source byte %d not zeroed", index)
		}
	}
}

func TestNew_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := New(size); err == nil {
			t.Errorf("New(%d): expected error", size)
		}
	}
	if _, err := NewFromBytes(nil); err == nil {
		t.Error("NewFromBytes(nil): expected error")
	}
}

func TestClose(t *testing.T) {
	buffer, err := NewFromBytes([]byte("x"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Bytes after Close did not panic")
		}
	}()
	buffer.Bytes()
}

func TestHeaderValue(t *testing.T) {
	buffer, err := NewFromBytes([]byte("bearer-token-value"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	if got := buffer.HeaderValue("Bearer"); got != "Bearer bearer-token-value" {
		t.Errorf("HeaderValue() = %q", got)
	}

	buffer.Close()
	if buffer.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", buffer.Len())
	}
	defer func() {
		if recover() == nil {
			t.Error("HeaderValue after Close did not panic")
		}
	}()
	buffer.HeaderValue("Bearer")
}

func TestReadFile(t *testing.T) {
	directory := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(directory, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	buffer, err := ReadFile(write("token", "  secret-value \n# issued 2026-03-01\n"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	defer buffer.Close()
	if got := buffer.String(); got != "secret-value" {
		t.Errorf("token = %q, want secret-value", got)
	}

	if _, err := ReadFile(write("blank", "\n\n")); err == nil {
		t.Error("blank file: expected error")
	}
	if _, err := ReadFile(""); err == nil {
		t.Error("no path: expected error")
	}
	if _, err := ReadFile(filepath.Join(directory, "missing")); err == nil {
		t.Error("missing file: expected error")
	}
}
