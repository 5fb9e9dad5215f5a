// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the provider
// client and its commands.
//
// Package-level variables are injected at build time via -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version of this module
//   - [QiboVersion] -- version of the circuit library the serialized
//     circuits are produced with
//
// QiboVersion matters at runtime: the server refuses to be talked to by
// a client whose circuit library differs from its own, because the
// serialized circuit format is version-coupled. Embedders that build
// circuits with a different library release override it through
// provider.Config.LibraryVersion instead of relinking.
package version
