// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the time operations used by the monitor.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. If d <= 0 the channel is ready immediately.
	After(d time.Duration) <-chan time.Time

	// NewTimer returns a Timer that delivers on its C channel once d
	// has elapsed. Loops that wait on a timer and may be woken by
	// something else first should Stop it, so the fake clock does not
	// accumulate abandoned waiters.
	NewTimer(d time.Duration) *Timer
}

// Timer is a single scheduled delivery.
type Timer struct {
	// C receives the fire time. Buffered with capacity 1.
	C <-chan time.Time

	stopFunc func() bool
}

// Stop prevents the Timer from firing. It returns false if the timer
// had already fired or been stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }
