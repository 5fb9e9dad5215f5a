// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoIncludesVersions(t *testing.T) {
	info := Info()
	if !strings.HasPrefix(info, Version+" ") {
		t.Errorf("Info() = %q, want prefix %q", info, Version)
	}
	if !strings.Contains(info, "qibo "+QiboVersion) {
		t.Errorf("Info() = %q, missing qibo version %q", info, QiboVersion)
	}
}

func TestFullIncludesPlatform(t *testing.T) {
	full := Full()
	if !strings.HasPrefix(full, Info()) {
		t.Errorf("Full() = %q, want prefix %q", full, Info())
	}
	if !strings.Contains(full, "Go: ") {
		t.Errorf("Full() = %q, missing Go version", full)
	}
}

func TestUserAgent(t *testing.T) {
	if got, want := UserAgent(), "tii-provider/"+Version; got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}
