// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"fmt"
	"sync"
)

// JobState is a Job's position in its lifecycle.
type JobState int

const (
	// StateIdle is a job that has not been started.
	StateIdle JobState = iota

	// StateSubmitted is a job the service accepted and assigned an id.
	StateSubmitted

	// StatePolling is a job whose status is being checked.
	StatePolling

	// StateCompleted is a job whose result was retrieved and loaded.
	StateCompleted

	// StateErrored is a job the service reported as failed.
	StateErrored

	// StateRejected is a submission the service declined.
	StateRejected

	// StateFailed is a job abandoned because of a local, transport or
	// protocol error, or cancellation.
	StateFailed
)

var stateNames = map[JobState]string{
	StateIdle:      "idle",
	StateSubmitted: "submitted",
	StatePolling:   "polling",
	StateCompleted: "completed",
	StateErrored:   "errored",
	StateRejected:  "rejected",
	StateFailed:    "failed",
}

func (state JobState) String() string {
	if name, ok := stateNames[state]; ok {
		return name
	}
	return fmt.Sprintf("JobState(%d)", int(state))
}

// Terminal reports whether no further transition is possible.
func (state JobState) Terminal() bool {
	return len(transitions[state]) == 0
}

// transitions lists the legal successors of each state. Terminal
// states have none.
var transitions = map[JobState][]JobState{
	StateIdle:      {StateSubmitted, StateRejected, StateFailed},
	StateSubmitted: {StatePolling, StateFailed},
	StatePolling:   {StateCompleted, StateErrored, StateFailed},
}

// Job runs one circuit through submission, polling and retrieval. A Job
// runs at most once; its state and id may be read from other
// goroutines while it runs.
type Job struct {
	client *Client

	mu      sync.Mutex
	started bool
	state   JobState
	id      string
}

// NewJob returns an idle job bound to this client.
func (client *Client) NewJob() *Job {
	return &Job{client: client}
}

// RunJob submits circuit and waits for its result. See Job.Run.
func (client *Client) RunJob(ctx context.Context, circuit Circuit, options RunOptions) (*Result, error) {
	return client.NewJob().Run(ctx, circuit, options)
}

// ResumeJob waits for and retrieves the result of a job submitted
// earlier, identified by the id the service returned. See Job.Resume.
func (client *Client) ResumeJob(ctx context.Context, jobID string) (*Result, error) {
	return client.NewJob().Resume(ctx, jobID)
}

// State returns the job's current state.
func (job *Job) State() JobState {
	job.mu.Lock()
	defer job.mu.Unlock()
	return job.state
}

// ID returns the service-assigned id, or "" before submission.
func (job *Job) ID() string {
	job.mu.Lock()
	defer job.mu.Unlock()
	return job.id
}

// Run submits circuit, polls until the service resolves it and
// retrieves the result.
//
// A nil Result with a nil error means there is no result: either the
// service declined the submission (logged, state Rejected) or it
// reported the job as failed (state Errored). Any other problem is
// returned as an error and leaves the job Failed.
func (job *Job) Run(ctx context.Context, circuit Circuit, options RunOptions) (*Result, error) {
	if err := job.begin(); err != nil {
		return nil, err
	}

	jobID, err := job.client.PostCircuit(ctx, circuit, options)
	if err != nil {
		if IsJobPostServerError(err) {
			job.client.logger.Warn("job submission rejected by service", "error", err)
			if err := job.transition(StateRejected); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, job.fail(err)
	}

	if err := job.submitted(jobID); err != nil {
		return nil, err
	}
	return job.follow(ctx)
}

// Resume adopts jobID as an already-submitted job, then polls and
// retrieves it as Run does.
func (job *Job) Resume(ctx context.Context, jobID string) (*Result, error) {
	if err := ValidateJobID(jobID); err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	if err := job.begin(); err != nil {
		return nil, err
	}
	if err := job.submitted(jobID); err != nil {
		return nil, err
	}
	return job.follow(ctx)
}

// follow drives a submitted job to a terminal state.
func (job *Job) follow(ctx context.Context) (*Result, error) {
	if err := job.transition(StatePolling); err != nil {
		return nil, err
	}

	completion, err := job.client.WaitForCompletion(ctx, job.ID())
	if err != nil {
		return nil, job.fail(err)
	}

	result, err := job.client.FetchResult(ctx, completion)
	if err != nil {
		return nil, job.fail(err)
	}

	final := StateCompleted
	if completion.Status == StatusError {
		final = StateErrored
	}
	if err := job.transition(final); err != nil {
		return nil, err
	}
	return result, nil
}

// begin claims the job for a single run.
func (job *Job) begin() error {
	job.mu.Lock()
	defer job.mu.Unlock()
	if job.started || job.state != StateIdle {
		return ErrJobNotIdle
	}
	job.started = true
	return nil
}

func (job *Job) submitted(jobID string) error {
	job.mu.Lock()
	defer job.mu.Unlock()
	if err := job.transitionLocked(StateSubmitted); err != nil {
		return err
	}
	job.id = jobID
	return nil
}

// fail moves the job to Failed and returns cause unchanged.
func (job *Job) fail(cause error) error {
	if err := job.transition(StateFailed); err != nil {
		job.client.logger.Error("job state corrupted", "error", err, "cause", cause)
	}
	return cause
}

func (job *Job) transition(to JobState) error {
	job.mu.Lock()
	defer job.mu.Unlock()
	return job.transitionLocked(to)
}

func (job *Job) transitionLocked(to JobState) error {
	for _, allowed := range transitions[job.state] {
		if allowed == to {
			job.client.logger.Debug("job state changed",
				"job_id", job.id,
				"from", job.state.String(),
				"to", to.String(),
			)
			job.state = to
			return nil
		}
	}
	return &TransitionError{From: job.state, To: to}
}
