// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"testing"
	"time"
)

// RequireReceive returns the first value sent on outcomes. A test whose
// job or poll loop never reports back fails after limit instead of
// hanging the package; waiting names what was expected.
//
//	outcome := testutil.RequireReceive(t, done, 5*time.Second, "waiting for job")
func RequireReceive[T any](t testing.TB, outcomes <-chan T, limit time.Duration, waiting string) T {
	t.Helper()

	deadline := time.NewTimer(limit) //nolint:realclock bounds a hung goroutine, not the code under test
	defer deadline.Stop()

	select {
	case outcome, open := <-outcomes:
		if !open {
			t.Fatalf("%s: channel closed with nothing sent", waiting)
		}
		return outcome
	case <-deadline.C:
		t.Fatalf("%s: nothing received within %v", waiting, limit)
	}
	panic("unreachable")
}
