// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

// Package provider is a client for the TII remote circuit execution
// service: it submits a serialized circuit, polls until the service
// resolves the job, and unpacks the result archive into a per-job
// directory.
//
// A job moves through a fixed pipeline:
//
//	NewClient         GET  qibo_version/        version must match exactly
//	PostCircuit       POST run_circuit/         returns the server's pid
//	WaitForCompletion GET  get_result/{pid}/    repeated at a constant interval
//	FetchResult                                 stream to temp file, extract, load
//
// [Job] sequences the pipeline as an explicit state machine and is what
// most callers use through [Client.RunJob]. A [Client] is immutable after
// construction and safe for concurrent use; each Job owns its own
// identifier and temporary archive, so concurrent jobs need no
// coordination.
//
// Two outcomes produce no result without an error: the service refusing
// the submission (a [*JobPostServerError], logged and swallowed by
// [Job.Run]) and the service reporting the job itself as failed. Every
// other failure is returned to the caller; nothing is retried except the
// status check in the polling loop.
//
// The bearer token is sent on every request and never appears in logs
// or error strings.
package provider
