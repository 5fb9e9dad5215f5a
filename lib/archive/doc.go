// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive extracts the gzip-compressed tar archives the job
// service delivers results in.
//
// Extraction is restricted to the destination directory: absolute member
// names, names that climb out with "..", and link entries are refused
// with an [*UnsafeEntryError] before anything is written for that member.
// A source that is not a readable gzip-tar stream (wrong magic, truncated
// data, corrupt headers) yields a [*ReadError]. Callers distinguish the
// two with errors.As.
package archive
