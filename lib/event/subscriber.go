// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"

	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// Subscriber receives decoded events. Implementations that care about
// only some kinds embed [NopSubscriber] and override the rest.
type Subscriber interface {
	JobStateUpdated(job trove.JobID, state trove.JobState, status string)
	JobLogUpdated(job trove.JobID, state trove.JobState, message string)
	JobTrovesSet(job trove.JobID, troves []trove.Tuple)
	TroveStateUpdated(key trove.Key, state trove.TroveState, status string)
	TroveLogUpdated(key trove.Key, state trove.TroveState, status string)
	TrovePreparingChroot(key trove.Key, host, path string)
}

// NopSubscriber implements every Subscriber method as a no-op.
type NopSubscriber struct{}

func (NopSubscriber) JobStateUpdated(trove.JobID, trove.JobState, string) {}
func (NopSubscriber) JobLogUpdated(trove.JobID, trove.JobState, string) {}
func (NopSubscriber) JobTrovesSet(trove.JobID, []trove.Tuple) {}
func (NopSubscriber) TroveStateUpdated(trove.Key, trove.TroveState, string) {}
func (NopSubscriber) TroveLogUpdated(trove.Key, trove.TroveState, string) {}
func (NopSubscriber) TrovePreparingChroot(trove.Key, string, string) {}

var _ Subscriber = NopSubscriber{}

// Poller is implemented by subscribers that do work between events.
// The listen loop calls Poll after every wake-up, whether or not an
// event arrived. Poll is responsible for its own rate limiting.
type Poller interface {
	Poll(ctx context.Context)
}

// Exiter is implemented by subscribers that can end the listen loop.
// The loop checks ShouldExit after every wake-up and returns cleanly
// once it reports true.
type Exiter interface {
	ShouldExit() bool
}
