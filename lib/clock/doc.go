// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source so that the job
// polling loop can be driven deterministically in tests.
//
// Production code holds a Clock and calls Now and After on it instead of
// the time package. Real() returns the standard library behavior. Fake()
// returns a clock that only moves when Advance is called:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go func() { done <- poller.Wait(ctx) }()
//	fake.WaitForTimers(1)         // the poller is now sleeping
//	fake.Advance(2 * time.Second) // wake it up
//
// WaitForTimers removes the race between a goroutine registering a timer
// and the test advancing past it.
package clock
