// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers: reporting a fatal
// error to stderr before or instead of the structured logger, and
// choosing the exit status from the error.
package process
