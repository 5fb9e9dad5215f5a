// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MalformedResponseError reports a JSON response body that lacks keys
// the client needs, or that is not a JSON object at all.
type MalformedResponseError struct {
	// Endpoint is the request path relative to the base URL.
	Endpoint string

	// Missing lists the required keys absent from the body.
	Missing []string

	// Err describes a body that could not be interpreted at all.
	Err error
}

func (err *MalformedResponseError) Error() string {
	var builder strings.Builder
	builder.WriteString("provider: malformed response")
	if err.Endpoint != "" {
		fmt.Fprintf(&builder, " from %s", err.Endpoint)
	}
	if len(err.Missing) > 0 {
		fmt.Fprintf(&builder, ": missing keys %s", strings.Join(err.Missing, ", "))
	}
	if err.Err != nil {
		fmt.Fprintf(&builder, ": %v", err.Err)
	}
	return builder.String()
}

func (err *MalformedResponseError) Unwrap() error { return err.Err }

// JobPostServerError reports that the service answered a submission
// without a job identifier. Message is the service's explanation, such
// as a full queue.
type JobPostServerError struct {
	Message string
}

func (err *JobPostServerError) Error() string {
	return "provider: server rejected job submission: " + err.Message
}

// VersionMismatchError reports that the service runs a different circuit
// library version than the client was built for.
type VersionMismatchError struct {
	Local  string
	Remote string
}

func (err *VersionMismatchError) Error() string {
	return fmt.Sprintf("provider: circuit library version mismatch: client has %q, server has %q", err.Local, err.Remote)
}

// APIError represents a non-2xx response from the job service.
type APIError struct {
	StatusCode int
	Method     string

	// Endpoint is the request path relative to the base URL.
	Endpoint string

	// Body is the start of the response body, for diagnostics.
	Body string
}

func (err *APIError) Error() string {
	message := fmt.Sprintf("provider: %s %s: HTTP %d", err.Method, err.Endpoint, err.StatusCode)
	if body := strings.TrimSpace(err.Body); body != "" {
		message += ": " + body
	}
	return message
}

// PollCancelledError reports that waiting for a job stopped before the
// service resolved it. Err is context.Canceled, context.DeadlineExceeded
// or ErrPollTimeout, and errors.Is sees through to it.
type PollCancelledError struct {
	JobID    string
	Attempts int
	Err      error
}

func (err *PollCancelledError) Error() string {
	return fmt.Sprintf("provider: stopped waiting for job %s after %d status checks: %v", err.JobID, err.Attempts, err.Err)
}

func (err *PollCancelledError) Unwrap() error { return err.Err }

// ErrPollTimeout is the cause recorded when Config.PollTimeout elapses.
// It wraps context.DeadlineExceeded.
var ErrPollTimeout = fmt.Errorf("provider: job wait timeout elapsed: %w", context.DeadlineExceeded)

// ErrJobNotIdle is returned when Run or Resume is called on a Job that
// has already been started.
var ErrJobNotIdle = errors.New("provider: job has already been started")

// TransitionError reports an attempt to move a Job between states the
// lifecycle does not connect.
type TransitionError struct {
	From JobState
	To   JobState
}

func (err *TransitionError) Error() string {
	return fmt.Sprintf("provider: illegal job transition %s -> %s", err.From, err.To)
}

// IsMalformedResponse reports whether err is a *MalformedResponseError.
func IsMalformedResponse(err error) bool {
	var malformed *MalformedResponseError
	return errors.As(err, &malformed)
}

// IsJobPostServerError reports whether err is a *JobPostServerError.
func IsJobPostServerError(err error) bool {
	var rejected *JobPostServerError
	return errors.As(err, &rejected)
}

// IsVersionMismatch reports whether err is a *VersionMismatchError.
func IsVersionMismatch(err error) bool {
	var mismatch *VersionMismatchError
	return errors.As(err, &mismatch)
}

// IsPollCancelled reports whether err is a *PollCancelledError.
func IsPollCancelled(err error) bool {
	var cancelled *PollCancelledError
	return errors.As(err, &cancelled)
}

// IsNotFound reports whether err is a 404 from the service. The service
// answers 404 for an unknown job and for an invalid token.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 or 403 from the service.
func IsUnauthorized(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	return apiError.StatusCode == http.StatusUnauthorized || apiError.StatusCode == http.StatusForbidden
}
