// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The log tail poller throttles itself against Clock.Now and the listen
// loop waits for events with Clock.After, so both can be driven
// deterministically in tests:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	display := monitor.NewJobLogDisplay(client, monitor.Options{Clock: fake})
//	display.Poll(ctx)            // fetches
//	display.Poll(ctx)            // throttled
//	fake.Advance(time.Second)
//	display.Poll(ctx)            // fetches again
//
// A goroutine blocked in After or on a Timer registers a pending
// waiter; tests call WaitForTimers before Advance to avoid racing the
// registration.
package clock
