// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"time"

	"github.com/bureau-foundation/trovewatch/lib/clock"
	"github.com/bureau-foundation/trovewatch/lib/event"
)

// Listen runs the event loop for one session. Each iteration waits up
// to pollInterval for the next event and dispatches it if one came,
// then calls the subscriber's Poll if it implements event.Poller.
// Before every wait, Listen returns nil if the subscriber implements
// event.Exiter and reports ShouldExit.
//
// Listen also returns when the stream ends (with the source's Err),
// when dispatch fails (with the *event.ArgumentError), or when ctx is
// cancelled.
func Listen(ctx context.Context, source Source, subscriber event.Subscriber, clk clock.Clock, pollInterval time.Duration) error {
	poller, _ := subscriber.(event.Poller)
	exiter, _ := subscriber.(event.Exiter)
	events := source.Events()

	for {
		if exiter != nil && exiter.ShouldExit() {
			return nil
		}

		timer := clk.NewTimer(pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case received, ok := <-events:
			timer.Stop()
			if !ok {
				return source.Err()
			}
			if err := event.Dispatch(subscriber, received); err != nil {
				return err
			}

		case <-timer.C:
		}

		if poller != nil {
			poller.Poll(ctx)
		}
	}
}
