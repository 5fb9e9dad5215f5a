// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only when a test calls Advance.
// A poll loop under test registers its interval and timeout timers
// through After; the test waits for them with WaitForTimers and then
// advances past whichever should fire. Safe for concurrent use.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time

	// timers is ordered by deadline, earliest first. Timers sharing a
	// deadline keep registration order.
	timers []fakeTimer

	// registered is signalled whenever a timer is added.
	registered *sync.Cond
}

type fakeTimer struct {
	deadline time.Time
	fire     chan time.Time
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	fake := &FakeClock{now: start}
	fake.registered = sync.NewCond(&fake.mu)
	return fake
}

// Now returns the clock's current reading.
func (fake *FakeClock) Now() time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.now
}

// After returns a channel that receives the clock's reading once it has
// been advanced by at least d. A non-positive d is ready at once and
// registers nothing.
func (fake *FakeClock) After(d time.Duration) <-chan time.Time {
	fire := make(chan time.Time, 1)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if d <= 0 {
		fire <- fake.now
		return fire
	}

	deadline := fake.now.Add(d)
	position, _ := slices.BinarySearchFunc(fake.timers, deadline, func(timer fakeTimer, target time.Time) int {
		if timer.deadline.After(target) {
			return 1
		}
		return -1
	})
	fake.timers = slices.Insert(fake.timers, position, fakeTimer{deadline: deadline, fire: fire})
	fake.registered.Broadcast()
	return fire
}

// Advance moves the clock forward by d. Every timer due at the new
// reading fires, earliest deadline first, and receives the new reading.
func (fake *FakeClock) Advance(d time.Duration) {
	fake.mu.Lock()
	fake.now = fake.now.Add(d)
	reading := fake.now
	due := 0
	for due < len(fake.timers) && !fake.timers[due].deadline.After(reading) {
		due++
	}
	fired := slices.Clone(fake.timers[:due])
	fake.timers = slices.Delete(fake.timers, 0, due)
	fake.mu.Unlock()

	for _, timer := range fired {
		timer.fire <- reading
	}
}

// WaitForTimers blocks until at least n timers are waiting to fire. It
// closes the gap between a goroutine deciding to sleep and a test
// calling Advance.
func (fake *FakeClock) WaitForTimers(n int) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	for len(fake.timers) < n {
		fake.registered.Wait()
	}
}

// PendingCount returns how many timers have not fired yet.
func (fake *FakeClock) PendingCount() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return len(fake.timers)
}
