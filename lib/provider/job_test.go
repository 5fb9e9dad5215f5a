// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/qibo-tii/provider/lib/clock"
	"github.com/qibo-tii/provider/lib/provider/providertest"
	"github.com/qibo-tii/provider/lib/testutil"
)

type runOutcome struct {
	result *Result
	err    error
}

func TestRunJob_Success(t *testing.T) {
	const pending = 2
	server := newTestServer(t, providertest.Options{
		NextPID: providertest.FixedPID("123"),
		Script: providertest.Script{
			PendingPolls: pending,
			Archive:      testutil.TarGz(t, map[string][]byte{"results.npy": []byte("npy-bytes")}),
		},
	})
	spoolPath := filepath.Join(t.TempDir(), "spool.tar.gz")
	fake := clock.Fake(epoch)
	var loadedPath string
	client := newTestClient(t, server, func(config *Config) {
		config.Clock = fake
		config.PollInterval = 2 * time.Second
		config.TempFiles = func() (*os.File, error) { return os.Create(spoolPath) }
		config.Loader = ResultLoaderFunc(func(_ context.Context, path string) (any, error) {
			loadedPath = path
			return "loaded", nil
		})
	})

	job := client.NewJob()
	done := make(chan runOutcome, 1)
	go func() {
		result, err := job.Run(context.Background(), RawCircuit("circuit"), RunOptions{Shots: 100, Device: "sim"})
		done <- runOutcome{result, err}
	}()
	for range pending {
		fake.WaitForTimers(1)
		if state := job.State(); state != StatePolling {
			t.Errorf("state while waiting = %s, want polling", state)
		}
		fake.Advance(2 * time.Second)
	}
	outcome := testutil.RequireReceive(t, done, 5*time.Second, "waiting for job")
	if outcome.err != nil {
		t.Fatalf("Run: %v", outcome.err)
	}

	wantArtifact := filepath.Join(client.ResultsDir(), "123", "results.npy")
	if loadedPath != wantArtifact {
		t.Errorf("loader got %q, want %q", loadedPath, wantArtifact)
	}
	if outcome.result.Value != "loaded" {
		t.Errorf("Value = %v, want the loader's value", outcome.result.Value)
	}
	content, err := os.ReadFile(wantArtifact)
	if err != nil || string(content) != "npy-bytes" {
		t.Errorf("artifact = %q, %v", content, err)
	}
	if got := server.Polls("123"); got != pending+1 {
		t.Errorf("server saw %d status checks, want %d", got, pending+1)
	}
	if _, err := os.Stat(spoolPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("spool file still present: %v", err)
	}
	if job.State() != StateCompleted || job.ID() != "123" {
		t.Errorf("job = %s/%q, want completed/123", job.State(), job.ID())
	}
}

func TestRunJob_ErrorStatus(t *testing.T) {
	server := newTestServer(t, providertest.Options{
		NextPID: providertest.FixedPID("123"),
		Script:  providertest.Script{PendingPolls: 1, Status: "error", Archive: []byte("not inspected")},
	})
	loaderCalled := false
	client := newTestClient(t, server, func(config *Config) {
		config.Loader = ResultLoaderFunc(func(context.Context, string) (any, error) {
			loaderCalled = true
			return nil, nil
		})
	})

	job := client.NewJob()
	result, err := job.Run(context.Background(), RawCircuit("circuit"), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
	if loaderCalled {
		t.Error("loader called for an errored job")
	}
	if job.State() != StateErrored {
		t.Errorf("state = %s, want errored", job.State())
	}
}

func TestRunJob_Rejected(t *testing.T) {
	server := newTestServer(t, providertest.Options{RejectMessage: "Job queue is full"})
	client := newTestClient(t, server, nil)

	job := client.NewJob()
	result, err := job.Run(context.Background(), RawCircuit("circuit"), RunOptions{})
	if err != nil || result != nil {
		t.Fatalf("Run = %v, %v; want nil, nil", result, err)
	}
	if job.State() != StateRejected {
		t.Errorf("state = %s, want rejected", job.State())
	}
	if job.ID() != "" {
		t.Errorf("rejected job has id %q", job.ID())
	}
}

func TestRunJob_InvalidToken(t *testing.T) {
	server := newTestServer(t, providertest.Options{Token: "valid-token"})
	client := newTestClient(t, server, func(config *Config) {
		config.Token = newToken(t, "invalid-token")
	})

	job := client.NewJob()
	_, err := job.Run(context.Background(), RawCircuit("circuit"), RunOptions{})
	if !IsNotFound(err) {
		t.Fatalf("error = %v, want a 404 APIError", err)
	}
	var apiError *APIError
	errors.As(err, &apiError)
	if apiError.Method != "POST" || apiError.Endpoint != "run_circuit/" {
		t.Errorf("APIError = %+v", apiError)
	}
	if job.State() != StateFailed {
		t.Errorf("state = %s, want failed", job.State())
	}
}

func TestRunJob_CancelledWhilePolling(t *testing.T) {
	server := newTestServer(t, providertest.Options{
		NextPID: providertest.FixedPID("123"),
		Script:  providertest.Script{PendingPolls: 1000},
	})
	fake := clock.Fake(epoch)
	client := newTestClient(t, server, func(config *Config) {
		config.Clock = fake
	})

	ctx, cancel := context.WithCancel(context.Background())
	job := client.NewJob()
	done := make(chan runOutcome, 1)
	go func() {
		result, err := job.Run(ctx, RawCircuit("circuit"), RunOptions{})
		done <- runOutcome{result, err}
	}()
	fake.WaitForTimers(1)
	cancel()

	outcome := testutil.RequireReceive(t, done, 5*time.Second, "waiting for cancelled job")
	if !errors.Is(outcome.err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", outcome.err)
	}
	if job.State() != StateFailed {
		t.Errorf("state = %s, want failed", job.State())
	}
}

func TestJob_RunsOnce(t *testing.T) {
	server := newTestServer(t, providertest.Options{
		Script: providertest.Script{Status: "error"},
	})
	client := newTestClient(t, server, nil)

	job := client.NewJob()
	if _, err := job.Run(context.Background(), RawCircuit("circuit"), RunOptions{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := job.Run(context.Background(), RawCircuit("circuit"), RunOptions{}); !errors.Is(err, ErrJobNotIdle) {
		t.Errorf("second Run error = %v, want ErrJobNotIdle", err)
	}
	if _, err := job.Resume(context.Background(), "123"); !errors.Is(err, ErrJobNotIdle) {
		t.Errorf("Resume after Run error = %v, want ErrJobNotIdle", err)
	}
	if got := len(server.Submissions()); got != 1 {
		t.Errorf("server saw %d submissions, want 1", got)
	}
}

func TestJob_IllegalTransitions(t *testing.T) {
	server := newTestServer(t, providertest.Options{})
	client := newTestClient(t, server, nil)

	tests := []struct {
		from JobState
		to   JobState
	}{
		{StateIdle, StatePolling},
		{StateIdle, StateCompleted},
		{StateSubmitted, StateCompleted},
		{StatePolling, StateSubmitted},
		{StateCompleted, StateFailed},
		{StateErrored, StatePolling},
		{StateRejected, StateSubmitted},
		{StateFailed, StateIdle},
	}
	for _, test := range tests {
		job := client.NewJob()
		job.state = test.from
		err := job.transition(test.to)
		var transitionError *TransitionError
		if !errors.As(err, &transitionError) {
			t.Errorf("%s -> %s: error = %v, want *TransitionError", test.from, test.to, err)
			continue
		}
		if job.State() != test.from {
			t.Errorf("%s -> %s: state changed to %s", test.from, test.to, job.State())
		}
	}

	for _, state := range []JobState{StateCompleted, StateErrored, StateRejected, StateFailed} {
		if !state.Terminal() {
			t.Errorf("%s is not terminal", state)
		}
	}
	for _, state := range []JobState{StateIdle, StateSubmitted, StatePolling} {
		if state.Terminal() {
			t.Errorf("%s is terminal", state)
		}
	}
}

func TestResumeJob(t *testing.T) {
	server := newTestServer(t, providertest.Options{
		NextPID: providertest.FixedPID("77"),
		Script: providertest.Script{
			PendingPolls: 1,
			Archive:      testutil.TarGz(t, map[string][]byte{"results.npy": []byte("npy")}),
		},
	})
	client := newTestClient(t, server, nil)

	jobID, err := client.PostCircuit(context.Background(), RawCircuit("circuit"), RunOptions{})
	if err != nil {
		t.Fatalf("PostCircuit: %v", err)
	}

	result, err := client.ResumeJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("ResumeJob: %v", err)
	}
	if result.JobID != "77" || result.Value != filepath.Join(client.ResultsDir(), "77", "results.npy") {
		t.Errorf("result = %+v", result)
	}
	if got := len(server.Submissions()); got != 1 {
		t.Errorf("ResumeJob submitted again: %d submissions", got)
	}

	if _, err := client.ResumeJob(context.Background(), "../77"); err == nil {
		t.Error("ResumeJob accepted an unsafe job id")
	}
}

func TestRunJob_Concurrent(t *testing.T) {
	const jobs = 8
	server := newTestServer(t, providertest.Options{
		NextPID: func() string { return testutil.UniqueID("job") },
		Script: providertest.Script{
			PendingPolls: 2,
			Archive:      testutil.TarGz(t, map[string][]byte{"results.npy": []byte("shared")}),
		},
	})
	client := newTestClient(t, server, nil)

	var wait sync.WaitGroup
	results := make([]*Result, jobs)
	errs := make([]error, jobs)
	for index := range jobs {
		wait.Add(1)
		go func() {
			defer wait.Done()
			results[index], errs[index] = client.RunJob(context.Background(), RawCircuit("circuit"), RunOptions{})
		}()
	}
	wait.Wait()

	seen := make(map[string]bool)
	for index := range jobs {
		if errs[index] != nil {
			t.Errorf("job %d: %v", index, errs[index])
			continue
		}
		result := results[index]
		if seen[result.Directory] {
			t.Errorf("two jobs share result directory %s", result.Directory)
		}
		seen[result.Directory] = true
		if got := server.Polls(result.JobID); got != 3 {
			t.Errorf("job %s: %d status checks, want 3", result.JobID, got)
		}
	}

	entries, err := os.ReadDir(client.ResultsDir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != jobs {
		t.Errorf("results dir holds %d entries, want %d", len(entries), jobs)
	}
}
