// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/trovewatch/lib/coordinator"
	"github.com/bureau-foundation/trovewatch/lib/event"
	"github.com/bureau-foundation/trovewatch/lib/failure"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// Recording is the file form of a captured job. State names are the
// display names of trove.JobState and trove.TroveState, in any case.
type Recording struct {
	Job    JobRecord     `yaml:"job"`
	Logs   []LogRecord   `yaml:"logs"`
	Troves []TroveRecord `yaml:"troves"`
	Events []EventRecord `yaml:"events"`
}

// JobRecord is the job as reported before any event plays.
type JobRecord struct {
	ID int64 `yaml:"id"`

	// State defaults to Initialized.
	State  string `yaml:"state"`
	Status string `yaml:"status"`

	// Failure is the message of the job's failure reason once it
	// reaches Failed. Empty means the status of that state change.
	Failure string `yaml:"failure"`
}

// LogRecord is one historical job log line.
type LogRecord struct {
	Time    time.Time `yaml:"time"`
	Message string    `yaml:"message"`
	Args    []string  `yaml:"args"`
}

// TroveRecord is one trove of the job.
type TroveRecord struct {
	Spec string `yaml:"spec"`

	// State defaults to Initialized.
	State    string `yaml:"state"`
	BuildLog string `yaml:"build_log"`
}

// EventRecord is one event. Kind selects which of the other fields
// apply:
//
//	JOB_STATE_UPDATED       state, status
//	JOB_LOG_UPDATED         state, message
//	JOB_TROVES_SET          troves
//	TROVE_STATE_UPDATED     trove, state, status
//	TROVE_LOG_UPDATED       trove, state, status
//	TROVE_PREPARING_CHROOT  trove, host, path
type EventRecord struct {
	Kind    event.Kind `yaml:"kind"`
	Trove   string     `yaml:"trove"`
	State   string     `yaml:"state"`
	Status  string     `yaml:"status"`
	Message string     `yaml:"message"`
	Troves  []string   `yaml:"troves"`

	// Host defaults to the coordinator's own host.
	Host string `yaml:"host"`
	Path string `yaml:"path"`
}

// Script is a validated recording, ready to be served.
type Script struct {
	job     coordinator.Job
	failure string
	logs    []coordinator.LogEntry
	troves  []scriptTrove
	events  []event.Event
}

type scriptTrove struct {
	tuple    trove.Tuple
	state    trove.TroveState
	buildLog string
}

// JobID is the id of the recorded job.
func (s *Script) JobID() trove.JobID { return s.job.ID }

// LoadFile reads and validates the recording at path.
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recording: %w", err)
	}
	script, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", path, err)
	}
	return script, nil
}

// Parse decodes and validates a YAML recording. Unknown keys are
// rejected.
func Parse(data []byte) (*Script, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var recording Recording
	if err := decoder.Decode(&recording); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty recording")
		}
		return nil, fmt.Errorf("parsing recording: %w", err)
	}
	return recording.Compile()
}

// Compile validates the recording and resolves its names.
func (r *Recording) Compile() (*Script, error) {
	if r.Job.ID <= 0 {
		return nil, fmt.Errorf("job id must be positive, got %d", r.Job.ID)
	}
	jobID := trove.JobID(r.Job.ID)

	state := trove.JobStateInit
	if r.Job.State != "" {
		var err error
		if state, err = trove.ParseJobState(r.Job.State); err != nil {
			return nil, fmt.Errorf("job: %w", err)
		}
	}
	script := &Script{
		job:     coordinator.Job{ID: jobID, State: state, Status: r.Job.Status},
		failure: r.Job.Failure,
	}
	if state == trove.JobStateFailed {
		script.job.Failure = failedReason(r.Job.Failure, r.Job.Status)
	}

	for _, entry := range r.Logs {
		script.logs = append(script.logs, coordinator.LogEntry{
			Timestamp: entry.Time,
			Message:   entry.Message,
			Args:      entry.Args,
		})
	}

	for i, record := range r.Troves {
		tuple, err := trove.ParseSpec(record.Spec)
		if err != nil {
			return nil, fmt.Errorf("trove %d: %w", i, err)
		}
		troveState := trove.TroveStateInit
		if record.State != "" {
			if troveState, err = trove.ParseTroveState(record.State); err != nil {
				return nil, fmt.Errorf("trove %s: %w", tuple.Name, err)
			}
		}
		script.troves = append(script.troves, scriptTrove{
			tuple:    tuple,
			state:    troveState,
			buildLog: record.BuildLog,
		})
	}

	for i, record := range r.Events {
		compiled, err := record.compile(jobID)
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, record.Kind, err)
		}
		script.events = append(script.events, compiled)
	}
	return script, nil
}

func (e *EventRecord) compile(jobID trove.JobID) (event.Event, error) {
	switch e.Kind {
	case event.JobStateUpdated:
		state, err := trove.ParseJobState(e.State)
		if err != nil {
			return event.Event{}, err
		}
		return event.NewJobStateUpdated(jobID, state, e.Status), nil

	case event.JobLogUpdated:
		state, err := trove.ParseJobState(e.State)
		if err != nil {
			return event.Event{}, err
		}
		return event.NewJobLogUpdated(jobID, state, e.Message), nil

	case event.JobTrovesSet:
		troves := make([]trove.Tuple, 0, len(e.Troves))
		for _, spec := range e.Troves {
			tuple, err := trove.ParseSpec(spec)
			if err != nil {
				return event.Event{}, err
			}
			troves = append(troves, tuple)
		}
		return event.NewJobTrovesSet(jobID, troves), nil

	case event.TroveStateUpdated, event.TroveLogUpdated:
		key, err := e.key(jobID)
		if err != nil {
			return event.Event{}, err
		}
		state, err := trove.ParseTroveState(e.State)
		if err != nil {
			return event.Event{}, err
		}
		if e.Kind == event.TroveStateUpdated {
			return event.NewTroveStateUpdated(key, state, e.Status), nil
		}
		return event.NewTroveLogUpdated(key, state, e.Status), nil

	case event.TrovePreparingChroot:
		key, err := e.key(jobID)
		if err != nil {
			return event.Event{}, err
		}
		if e.Path == "" {
			return event.Event{}, errors.New("chroot path is required")
		}
		host := e.Host
		if host == "" {
			host = event.LocalHost
		}
		return event.NewTrovePreparingChroot(key, host, e.Path), nil

	default:
		return event.Event{}, fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

func (e *EventRecord) key(jobID trove.JobID) (trove.Key, error) {
	if e.Trove == "" {
		return trove.Key{}, errors.New("trove is required")
	}
	tuple, err := trove.ParseSpec(e.Trove)
	if err != nil {
		return trove.Key{}, err
	}
	return trove.NewKey(jobID, tuple), nil
}

func failedReason(message, status string) failure.Frozen {
	if message == "" {
		message = status
	}
	return failure.Freeze(failure.Failed{Message: message})
}
