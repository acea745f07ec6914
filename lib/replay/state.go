// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package replay

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/trovewatch/lib/coordinator"
	"github.com/bureau-foundation/trovewatch/lib/event"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// jobState is what the coordinator reports about the job. Played
// events are dispatched into it. The Coordinator's mutex guards it.
type jobState struct {
	event.NopSubscriber

	job     coordinator.Job
	failure string
	logs    []coordinator.LogEntry
	troves  map[trove.Tuple]*troveLog
	order   []trove.Tuple
	now     func() time.Time
}

type troveLog struct {
	state trove.TroveState
	text  string
}

func (s *jobState) check(jobID trove.JobID) error {
	if jobID != s.job.ID {
		return fmt.Errorf("no such job %d", jobID)
	}
	return nil
}

// track returns the entry for tuple, adding it if the recording has
// not mentioned it before.
func (s *jobState) track(tuple trove.Tuple) *troveLog {
	entry, ok := s.troves[tuple]
	if !ok {
		entry = &troveLog{state: trove.TroveStateInit}
		s.troves[tuple] = entry
		s.order = append(s.order, tuple)
	}
	return entry
}

func (s *jobState) JobStateUpdated(jobID trove.JobID, state trove.JobState, status string) {
	if jobID != s.job.ID {
		return
	}
	s.job.State = state
	s.job.Status = status
	if state == trove.JobStateFailed && s.job.Failure.IsZero() {
		s.job.Failure = failedReason(s.failure, status)
	}
}

func (s *jobState) JobLogUpdated(jobID trove.JobID, _ trove.JobState, message string) {
	if jobID != s.job.ID {
		return
	}
	s.logs = append(s.logs, coordinator.LogEntry{Timestamp: s.now(), Message: message})
}

func (s *jobState) JobTrovesSet(jobID trove.JobID, troves []trove.Tuple) {
	if jobID != s.job.ID {
		return
	}
	s.job.Troves = troves
	for _, tuple := range troves {
		s.track(tuple)
	}
}

func (s *jobState) TroveStateUpdated(key trove.Key, state trove.TroveState, _ string) {
	if key.Job != s.job.ID {
		return
	}
	s.track(key.Trove).state = state
}
