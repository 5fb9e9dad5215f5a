// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/qibo-tii/provider/lib/netutil"
)

// JobStatusHeader is the response header carrying a job's status.
const JobStatusHeader = "Job-Status"

// JobStatus is the service-side status of a submitted job.
type JobStatus string

const (
	StatusPending JobStatus = "pending"
	StatusSuccess JobStatus = "success"
	StatusError   JobStatus = "error"
)

// Terminal reports whether the service has finished with the job.
func (status JobStatus) Terminal() bool {
	return status == StatusSuccess || status == StatusError
}

// ParseJobStatus interprets a Job-Status header value. An absent header
// means pending. The second result is false for values the client does
// not recognize, which are treated as pending.
func ParseJobStatus(header string) (JobStatus, bool) {
	switch status := JobStatus(strings.ToLower(strings.TrimSpace(header))); status {
	case "", StatusPending:
		return StatusPending, true
	case StatusSuccess, StatusError:
		return status, true
	default:
		return StatusPending, false
	}
}

func resultPath(jobID string) string {
	return resultPathBase + url.PathEscape(jobID) + "/"
}

// Completion is the terminal status response for a job. It owns the
// open response body, which holds the result archive; pass it to
// FetchResult or Close it.
type Completion struct {
	JobID    string
	Status   JobStatus
	Attempts int

	body io.ReadCloser
	// release cancels the poll context the body is still streaming under.
	release func()
}

// Close releases the response body and the poll context. It is safe to
// call more than once.
func (completion *Completion) Close() error {
	var err error
	if completion.body != nil {
		err = completion.body.Close()
		completion.body = nil
	}
	if completion.release != nil {
		completion.release()
		completion.release = nil
	}
	return err
}

// WaitForCompletion polls the job's status at a constant interval until
// the service reports success or error. Each non-terminal response is
// drained and closed before the next wait. The loop ends early only on
// a transport or HTTP error, context cancellation, or Config.PollTimeout;
// the latter two return a *PollCancelledError.
func (client *Client) WaitForCompletion(ctx context.Context, jobID string) (*Completion, error) {
	if err := ValidateJobID(jobID); err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	path := resultPath(jobID)

	// Config.PollTimeout bounds the whole wait, in-flight requests
	// included: a status request the service never answers is cut off by
	// cancelling pollCtx with ErrPollTimeout as the cause.
	pollCtx, cancel := context.WithCancelCause(ctx)
	finished := make(chan struct{})
	if client.pollTimeout > 0 {
		timeout := client.clock.After(client.pollTimeout)
		go func() {
			select {
			case <-timeout:
				cancel(ErrPollTimeout)
			case <-finished:
			}
		}()
	}
	handedOff := false
	defer func() {
		close(finished)
		if !handedOff {
			cancel(nil)
		}
	}()

	for attempt := 1; ; attempt++ {
		response, err := client.send(pollCtx, http.MethodGet, path, "", nil)
		if err != nil {
			if pollCtx.Err() != nil {
				return nil, &PollCancelledError{JobID: jobID, Attempts: attempt, Err: context.Cause(pollCtx)}
			}
			return nil, err
		}

		header := response.Header.Get(JobStatusHeader)
		status, known := ParseJobStatus(header)
		if status.Terminal() {
			client.logger.Info("job finished",
				"job_id", jobID,
				"status", string(status),
				"attempt", attempt,
			)
			handedOff = true
			return &Completion{
				JobID:    jobID,
				Status:   status,
				Attempts: attempt,
				body:     response.Body,
				release:  func() { cancel(nil) },
			}, nil
		}
		netutil.DrainAndClose(response.Body)

		if !known {
			client.logger.Warn("unrecognized job status, still waiting",
				"job_id", jobID,
				"status", header,
				"attempt", attempt,
			)
		} else {
			client.logger.Debug("job pending",
				"job_id", jobID,
				"attempt", attempt,
			)
		}

		select {
		case <-pollCtx.Done():
			return nil, &PollCancelledError{JobID: jobID, Attempts: attempt, Err: context.Cause(pollCtx)}
		case <-client.clock.After(client.pollInterval):
		}
	}
}
