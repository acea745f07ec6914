// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/bureau-foundation/trovewatch/lib/clock"
	"github.com/bureau-foundation/trovewatch/lib/event"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// DefaultPollInterval is the listen loop's receive timeout when
// ListenOptions leaves it unset.
const DefaultPollInterval = time.Second

// Client is the monitor's view of the coordinator.
type Client interface {
	// URI returns the address the client reaches the coordinator at.
	// A unix:// URI tells the endpoint resolver to listen on a local
	// socket too.
	URI() string

	// ListenToEvents delivers events for jobID to subscriber until the
	// stream ends, the subscriber asks to exit, dispatch fails, or ctx
	// is cancelled. endpoint is the address events arrive on.
	ListenToEvents(ctx context.Context, endpoint string, jobID trove.JobID, subscriber event.Subscriber, options ListenOptions) error

	// GetJob returns a snapshot of jobID, with its trove list when
	// withTroves is set.
	GetJob(ctx context.Context, jobID trove.JobID, withTroves bool) (*Job, error)

	// GetJobLogs returns the job-level log entries starting at mark.
	// An empty result means there are no more.
	GetJobLogs(ctx context.Context, jobID trove.JobID, mark int) ([]LogEntry, error)

	// ListTrovesByState returns the job's troves currently in state.
	ListTrovesByState(ctx context.Context, jobID trove.JobID, state trove.TroveState) (TrovesByState, error)

	// GetTroveBuildLog returns the build log of one trove starting at
	// mark.
	GetTroveBuildLog(ctx context.Context, jobID trove.JobID, tuple trove.Tuple, mark int64) (BuildLogChunk, error)
}

// ListenOptions configures ListenToEvents.
type ListenOptions struct {
	// ShowTroveDetails asks the coordinator for trove-level events
	// beyond state changes.
	ShowTroveDetails bool

	// Serve means this process hosts the endpoint. Otherwise the
	// endpoint is dialed and the stream read from it.
	Serve bool

	// Clock drives the receive timeout. Nil means the real clock.
	Clock clock.Clock

	// PollInterval is the receive timeout between subscriber polls.
	// Zero means DefaultPollInterval.
	PollInterval time.Duration

	// Logger receives transport diagnostics. Nil discards them.
	Logger *slog.Logger
}

func (o ListenOptions) withDefaults() ListenOptions {
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}
