// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/qibo-tii/provider/lib/clock"
	"github.com/qibo-tii/provider/lib/provider/providertest"
	"github.com/qibo-tii/provider/lib/testutil"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type waitOutcome struct {
	completion *Completion
	err        error
}

func startWait(ctx context.Context, client *Client, jobID string) <-chan waitOutcome {
	done := make(chan waitOutcome, 1)
	go func() {
		completion, err := client.WaitForCompletion(ctx, jobID)
		done <- waitOutcome{completion, err}
	}()
	return done
}

func TestParseJobStatus(t *testing.T) {
	tests := []struct {
		header    string
		want      JobStatus
		wantKnown bool
	}{
		{header: "", want: StatusPending, wantKnown: true},
		{header: "pending", want: StatusPending, wantKnown: true},
		{header: "success", want: StatusSuccess, wantKnown: true},
		{header: " Error ", want: StatusError, wantKnown: true},
		{header: "queued", want: StatusPending, wantKnown: false},
	}
	for _, test := range tests {
		got, known := ParseJobStatus(test.header)
		if got != test.want || known != test.wantKnown {
			t.Errorf("ParseJobStatus(%q) = %q, %v; want %q, %v", test.header, got, known, test.want, test.wantKnown)
		}
	}
}

func TestWaitForCompletion_PollsUntilTerminal(t *testing.T) {
	const pending = 3
	for _, omitHeader := range []bool{false, true} {
		name := "pending header"
		if omitHeader {
			name = "no header"
		}
		t.Run(name, func(t *testing.T) {
			server := newTestServer(t, providertest.Options{
				NextPID: providertest.FixedPID("123"),
				Script: providertest.Script{
					PendingPolls:      pending,
					Archive:           []byte("archive"),
					OmitPendingHeader: omitHeader,
				},
			})
			fake := clock.Fake(epoch)
			client := newTestClient(t, server, func(config *Config) {
				config.Clock = fake
				config.PollInterval = 2 * time.Second
			})
			if _, err := client.PostCircuit(context.Background(), RawCircuit("c"), RunOptions{}); err != nil {
				t.Fatalf("PostCircuit: %v", err)
			}

			done := startWait(context.Background(), client, "123")
			for range pending {
				fake.WaitForTimers(1)
				fake.Advance(2 * time.Second)
			}
			outcome := testutil.RequireReceive(t, done, 5*time.Second, "waiting for completion")
			if outcome.err != nil {
				t.Fatalf("WaitForCompletion: %v", outcome.err)
			}
			defer outcome.completion.Close()

			if outcome.completion.Status != StatusSuccess {
				t.Errorf("status = %q, want success", outcome.completion.Status)
			}
			if outcome.completion.Attempts != pending+1 {
				t.Errorf("attempts = %d, want %d", outcome.completion.Attempts, pending+1)
			}
			if got := server.Polls("123"); got != pending+1 {
				t.Errorf("server saw %d status checks, want %d", got, pending+1)
			}
		})
	}
}

func TestWaitForCompletion_ErrorStatusIsTerminal(t *testing.T) {
	server := newTestServer(t, providertest.Options{
		NextPID: providertest.FixedPID("123"),
		Script:  providertest.Script{Status: "error"},
	})
	client := newTestClient(t, server, nil)
	if _, err := client.PostCircuit(context.Background(), RawCircuit("c"), RunOptions{}); err != nil {
		t.Fatalf("PostCircuit: %v", err)
	}

	completion, err := client.WaitForCompletion(context.Background(), "123")
	if err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	defer completion.Close()
	if completion.Status != StatusError || completion.Attempts != 1 {
		t.Errorf("completion = %+v, want error status after one attempt", completion)
	}
}

func TestWaitForCompletion_UnknownJob(t *testing.T) {
	server := newTestServer(t, providertest.Options{})
	client := newTestClient(t, server, nil)

	_, err := client.WaitForCompletion(context.Background(), "999")
	if !IsNotFound(err) {
		t.Fatalf("error = %v, want 404 APIError", err)
	}
}

func TestWaitForCompletion_Cancellation(t *testing.T) {
	server := newTestServer(t, providertest.Options{
		NextPID: providertest.FixedPID("123"),
		Script:  providertest.Script{PendingPolls: 1000},
	})
	fake := clock.Fake(epoch)
	client := newTestClient(t, server, func(config *Config) {
		config.Clock = fake
	})
	if _, err := client.PostCircuit(context.Background(), RawCircuit("c"), RunOptions{}); err != nil {
		t.Fatalf("PostCircuit: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := startWait(ctx, client, "123")
	fake.WaitForTimers(1)
	cancel()

	outcome := testutil.RequireReceive(t, done, 5*time.Second, "waiting for cancellation")
	var cancelled *PollCancelledError
	if !errors.As(outcome.err, &cancelled) {
		t.Fatalf("error = %v, want *PollCancelledError", outcome.err)
	}
	if !errors.Is(outcome.err, context.Canceled) {
		t.Errorf("error does not unwrap to context.Canceled: %v", outcome.err)
	}
	if cancelled.JobID != "123" || cancelled.Attempts != 1 {
		t.Errorf("cancelled = %+v, want job 123 after 1 attempt", cancelled)
	}
}

func TestWaitForCompletion_PollTimeout(t *testing.T) {
	server := newTestServer(t, providertest.Options{
		NextPID: providertest.FixedPID("123"),
		Script:  providertest.Script{PendingPolls: 1000},
	})
	fake := clock.Fake(epoch)
	client := newTestClient(t, server, func(config *Config) {
		config.Clock = fake
		config.PollInterval = 2 * time.Second
		config.PollTimeout = 5 * time.Second
	})
	if _, err := client.PostCircuit(context.Background(), RawCircuit("c"), RunOptions{}); err != nil {
		t.Fatalf("PostCircuit: %v", err)
	}

	done := startWait(context.Background(), client, "123")
	// The timeout and the first interval wait.
	fake.WaitForTimers(2)
	fake.Advance(5 * time.Second)

	outcome := testutil.RequireReceive(t, done, 5*time.Second, "waiting for poll timeout")
	if !IsPollCancelled(outcome.err) {
		t.Fatalf("error = %v, want *PollCancelledError", outcome.err)
	}
	if !errors.Is(outcome.err, ErrPollTimeout) || !errors.Is(outcome.err, context.DeadlineExceeded) {
		t.Errorf("error does not unwrap to the poll timeout: %v", outcome.err)
	}
}

func TestWaitForCompletion_PollTimeoutCutsStalledRequest(t *testing.T) {
	server := newTestServer(t, providertest.Options{
		NextPID: providertest.FixedPID("123"),
		Script:  providertest.Script{Stall: true},
	})
	client := newTestClient(t, server, func(config *Config) {
		config.PollTimeout = 200 * time.Millisecond
	})
	if _, err := client.PostCircuit(context.Background(), RawCircuit("c"), RunOptions{}); err != nil {
		t.Fatalf("PostCircuit: %v", err)
	}

	done := startWait(context.Background(), client, "123")

	outcome := testutil.RequireReceive(t, done, 5*time.Second, "waiting for the timeout to cut the stalled status check")
	var cancelled *PollCancelledError
	if !errors.As(outcome.err, &cancelled) {
		t.Fatalf("error = %v, want *PollCancelledError", outcome.err)
	}
	if !errors.Is(outcome.err, ErrPollTimeout) {
		t.Errorf("error does not unwrap to ErrPollTimeout: %v", outcome.err)
	}
	if cancelled.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", cancelled.Attempts)
	}
	if got := server.Polls("123"); got != 1 {
		t.Errorf("status checks = %d, want 1", got)
	}
}

func TestWaitForCompletion_BodyOutlivesPollTimeout(t *testing.T) {
	archiveBytes := testutil.TarGz(t, map[string][]byte{"results.npy": []byte("counts")})
	server := newTestServer(t, providertest.Options{
		NextPID: providertest.FixedPID("123"),
		Script:  providertest.Script{Status: "success", Archive: archiveBytes},
	})
	fake := clock.Fake(epoch)
	client := newTestClient(t, server, func(config *Config) {
		config.Clock = fake
		config.PollTimeout = 5 * time.Second
	})
	if _, err := client.PostCircuit(context.Background(), RawCircuit("c"), RunOptions{}); err != nil {
		t.Fatalf("PostCircuit: %v", err)
	}

	completion, err := client.WaitForCompletion(context.Background(), "123")
	if err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	defer completion.Close()

	// Expiry after the handoff must not cut the body FetchResult reads.
	fake.Advance(10 * time.Second)
	got, err := io.ReadAll(completion.body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(got) != string(archiveBytes) {
		t.Errorf("body = %d bytes, want %d", len(got), len(archiveBytes))
	}
}

func TestWaitForCompletion_RejectsUnsafeJobID(t *testing.T) {
	server := newTestServer(t, providertest.Options{})
	client := newTestClient(t, server, nil)

	if _, err := client.WaitForCompletion(context.Background(), "../x"); err == nil {
		t.Fatal("expected error")
	}
	if got := server.Polls("../x"); got != 0 {
		t.Errorf("unsafe id reached the service %d times", got)
	}
}
