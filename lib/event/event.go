// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"fmt"

	"github.com/bureau-foundation/trovewatch/lib/codec"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// Kind names an event. The names are part of the coordinator wire
// contract.
type Kind string

const (
	// JobStateUpdated: (JobID, JobState, status string).
	JobStateUpdated Kind = "JOB_STATE_UPDATED"

	// JobLogUpdated: (JobID, JobState, message string).
	JobLogUpdated Kind = "JOB_LOG_UPDATED"

	// JobTrovesSet: (JobID, []Tuple).
	JobTrovesSet Kind = "JOB_TROVES_SET"

	// TroveStateUpdated: (Key, TroveState, status string).
	TroveStateUpdated Kind = "TROVE_STATE_UPDATED"

	// TroveLogUpdated: (Key, TroveState, status string).
	TroveLogUpdated Kind = "TROVE_LOG_UPDATED"

	// TrovePreparingChroot: (Key, host string, path string).
	TrovePreparingChroot Kind = "TROVE_PREPARING_CHROOT"
)

// Event is one notification from the coordinator.
type Event struct {
	Kind Kind               `cbor:"kind"`
	Args []codec.RawMessage `cbor:"args"`
}

// New encodes args positionally into an Event of the given kind. It
// accepts any kind, including ones this package does not know.
func New(kind Kind, args ...any) (Event, error) {
	encoded := make([]codec.RawMessage, len(args))
	for i, arg := range args {
		data, err := codec.Marshal(arg)
		if err != nil {
			return Event{}, fmt.Errorf("encoding %s argument %d: %w", kind, i, err)
		}
		encoded[i] = data
	}
	return Event{Kind: kind, Args: encoded}, nil
}

// mustNew is New for argument types that always encode.
func mustNew(kind Kind, args ...any) Event {
	event, err := New(kind, args...)
	if err != nil {
		panic(err)
	}
	return event
}

// NewJobStateUpdated returns a JOB_STATE_UPDATED event.
func NewJobStateUpdated(job trove.JobID, state trove.JobState, status string) Event {
	return mustNew(JobStateUpdated, job, state, status)
}

// NewJobLogUpdated returns a JOB_LOG_UPDATED event.
func NewJobLogUpdated(job trove.JobID, state trove.JobState, message string) Event {
	return mustNew(JobLogUpdated, job, state, message)
}

// NewJobTrovesSet returns a JOB_TROVES_SET event.
func NewJobTrovesSet(job trove.JobID, troves []trove.Tuple) Event {
	return mustNew(JobTrovesSet, job, troves)
}

// NewTroveStateUpdated returns a TROVE_STATE_UPDATED event.
func NewTroveStateUpdated(key trove.Key, state trove.TroveState, status string) Event {
	return mustNew(TroveStateUpdated, key, state, status)
}

// NewTroveLogUpdated returns a TROVE_LOG_UPDATED event.
func NewTroveLogUpdated(key trove.Key, state trove.TroveState, status string) Event {
	return mustNew(TroveLogUpdated, key, state, status)
}

// NewTrovePreparingChroot returns a TROVE_PREPARING_CHROOT event.
// host is [LocalHost] when the chroot is on the coordinator's own
// machine.
func NewTrovePreparingChroot(key trove.Key, host, path string) Event {
	return mustNew(TrovePreparingChroot, key, host, path)
}

// LocalHost is the host value of a TROVE_PREPARING_CHROOT event whose
// chroot lives on the coordinator's machine.
const LocalHost = "_local_"
