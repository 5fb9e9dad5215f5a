// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds credentials such as the job service bearer token
// in memory the garbage collector never sees.
//
// A [Buffer] is an anonymous mmap region locked into RAM and excluded
// from core dumps. Close zeroes and unmaps it. [ReadFile] loads a token
// file into a Buffer and scrubs the heap copy it read from.
//
// Linux only; depends on golang.org/x/sys/unix.
package secret
