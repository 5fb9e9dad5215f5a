// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] waits for one value from a goroutine, such as a poll
// loop driven by a fake clock, under a real-time limit so a stuck loop
// fails the test instead of hanging it.
//
// [TarGz] builds a gzip-compressed tar archive in memory, the format the
// job service delivers results in.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, e.g. job ids handed out by a fake server.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
