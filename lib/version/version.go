// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version of this module.
	Version = "0.1.0-dev"

	// QiboVersion is the circuit library version the server must
	// report for a client to be constructed.
	QiboVersion = "0.2.8"
)

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return fmt.Sprintf("%s (%s, %s, qibo %s)", Version, GitCommit, BuildTime, QiboVersion)
}

// Full returns Info plus the Go toolchain and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent returns the User-Agent header value sent on every request.
func UserAgent() string {
	return "tii-provider/" + Version
}
