// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"time"

	"github.com/bureau-foundation/trovewatch/lib/failure"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// Job is a snapshot of one build job.
type Job struct {
	ID     trove.JobID    `cbor:"id"`
	State  trove.JobState `cbor:"state"`
	Status string         `cbor:"status"`

	// Failure is the frozen failure reason of a failed job, or the
	// zero Frozen.
	Failure failure.Frozen `cbor:"failure"`

	// Troves is populated only when the snapshot was requested with
	// troves.
	Troves []trove.Tuple `cbor:"troves,omitempty"`
}

// IsFinished reports whether the job has reached a terminal state.
func (j *Job) IsFinished() bool { return j.State.IsFinished() }

// FailureReason thaws the job's failure. It returns nil for a job
// that has not failed.
func (j *Job) FailureReason() (failure.Reason, error) {
	return failure.Thaw(j.Failure)
}

// LogEntry is one historical job-level log line.
type LogEntry struct {
	Timestamp time.Time `cbor:"timestamp"`
	Message   string    `cbor:"message"`
	Args      []string  `cbor:"args,omitempty"`
}

// BuildLogChunk is the result of one build-log fetch. Text is the
// data starting at the requested mark, and Mark is where the next
// fetch should start. More is false once the log is complete and
// fully delivered.
type BuildLogChunk struct {
	More bool
	Text string
	Mark int64
}

// TrovesByState maps a trove state to the troves of a job in it.
type TrovesByState map[trove.TroveState][]trove.Tuple
