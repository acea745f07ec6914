// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trove

import (
	"fmt"
	"strings"
)

// JobState is the lifecycle state of a job. Values are part of the
// coordinator wire contract.
type JobState int

const (
	JobStateInit       JobState = 0
	JobStateLoading    JobState = 100
	JobStateLoaded     JobState = 101
	JobStateBuilding   JobState = 102
	JobStateBuilt      JobState = 200
	JobStateCommitting JobState = 300
	JobStateCommitted  JobState = 301
	JobStateFailed     JobState = 400
)

var jobStateNames = map[JobState]string{
	JobStateInit:       "Initialized",
	JobStateLoading:    "Loading",
	JobStateLoaded:     "Loaded",
	JobStateBuilding:   "Building",
	JobStateBuilt:      "Built",
	JobStateCommitting: "Committing",
	JobStateCommitted:  "Committed",
	JobStateFailed:     "Failed",
}

// String returns the canonical display name of the state.
func (s JobState) String() string {
	if name, ok := jobStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Unknown state %d", int(s))
}

// ParseJobState looks up a job state by display name, ignoring case.
func ParseJobState(name string) (JobState, error) {
	for state, stateName := range jobStateNames {
		if strings.EqualFold(name, stateName) {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unknown job state %q", name)
}

// IsFinished reports whether the job has stopped building. Only Built
// and Failed are terminal for monitoring purposes; commits happen
// after the monitor has detached.
func (s JobState) IsFinished() bool {
	return s == JobStateBuilt || s == JobStateFailed
}

// TroveState is the lifecycle state of a single trove.
type TroveState int

const (
	TroveStateInit        TroveState = 0
	TroveStateFailed      TroveState = 1
	TroveStateResolving   TroveState = 2
	TroveStateBuildable   TroveState = 3
	TroveStatePreparing   TroveState = 4
	TroveStateBuilding    TroveState = 5
	TroveStateBuilt       TroveState = 6
	TroveStateUnbuildable TroveState = 7
)

var troveStateNames = map[TroveState]string{
	TroveStateInit:        "Initialized",
	TroveStateFailed:      "Failed",
	TroveStateResolving:   "Resolving Dependencies",
	TroveStateBuildable:   "Buildable",
	TroveStatePreparing:   "Preparing Chroot",
	TroveStateBuilding:    "Building",
	TroveStateBuilt:       "Built",
	TroveStateUnbuildable: "Unbuildable",
}

// String returns the canonical display name of the state.
func (s TroveState) String() string {
	if name, ok := troveStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Unknown state %d", int(s))
}

// ParseTroveState looks up a trove state by display name, ignoring
// case.
func ParseTroveState(name string) (TroveState, error) {
	for state, stateName := range troveStateNames {
		if strings.EqualFold(name, stateName) {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unknown trove state %q", name)
}

// IsActive reports whether a trove in this state is producing build
// log output worth tailing.
func (s TroveState) IsActive() bool {
	return s == TroveStateBuilding || s == TroveStateResolving
}
