// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/bureau-foundation/trovewatch/lib/coordinator"
	"github.com/bureau-foundation/trovewatch/lib/event"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

var epoch = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

var (
	tmpwatch = trove.NewTuple("tmpwatch:source", "/localhost@rpl:linux/2.9.0-1", "")
	zlib     = trove.NewTuple("zlib:source", "/localhost@rpl:linux/1.3.1-1", "")
)

const testJob trove.JobID = 7

// fetchResult is one scripted reply to GetTroveBuildLog.
type fetchResult struct {
	chunk coordinator.BuildLogChunk
	err   error
}

// fakeCoordinator is a scripted coordinator.Client.
type fakeCoordinator struct {
	uri string

	job    coordinator.Job
	jobErr error

	logs     []coordinator.LogEntry
	pageSize int
	logMarks []int

	building []trove.Tuple

	// buildLogs holds replies per trove name, consumed in order. An
	// exhausted queue reports more data with nothing new.
	buildLogs map[string][]fetchResult
	fetches   []string

	listen   func(ctx context.Context, endpoint string, subscriber event.Subscriber, options coordinator.ListenOptions) error
	endpoint string
	options  coordinator.ListenOptions
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{
		uri:       "unix:///run/trovewatch/coordinator.sock",
		job:       coordinator.Job{ID: testJob, State: trove.JobStateBuilding},
		pageSize:  2,
		buildLogs: make(map[string][]fetchResult),
	}
}

func (f *fakeCoordinator) URI() string { return f.uri }

func (f *fakeCoordinator) ListenToEvents(ctx context.Context, endpoint string, jobID trove.JobID, subscriber event.Subscriber, options coordinator.ListenOptions) error {
	f.endpoint = endpoint
	f.options = options
	if f.listen == nil {
		return nil
	}
	return f.listen(ctx, endpoint, subscriber, options)
}

func (f *fakeCoordinator) GetJob(_ context.Context, jobID trove.JobID, _ bool) (*coordinator.Job, error) {
	if f.jobErr != nil {
		return nil, f.jobErr
	}
	job := f.job
	return &job, nil
}

func (f *fakeCoordinator) GetJobLogs(_ context.Context, _ trove.JobID, mark int) ([]coordinator.LogEntry, error) {
	f.logMarks = append(f.logMarks, mark)
	if mark >= len(f.logs) {
		return nil, nil
	}
	end := min(mark+f.pageSize, len(f.logs))
	return f.logs[mark:end], nil
}

func (f *fakeCoordinator) ListTrovesByState(_ context.Context, _ trove.JobID, state trove.TroveState) (coordinator.TrovesByState, error) {
	if state != trove.TroveStateBuilding || len(f.building) == 0 {
		return coordinator.TrovesByState{}, nil
	}
	return coordinator.TrovesByState{trove.TroveStateBuilding: f.building}, nil
}

func (f *fakeCoordinator) GetTroveBuildLog(_ context.Context, _ trove.JobID, tuple trove.Tuple, mark int64) (coordinator.BuildLogChunk, error) {
	f.fetches = append(f.fetches, fmt.Sprintf("%s@%d", tuple.Name, mark))
	queue := f.buildLogs[tuple.Name]
	if len(queue) == 0 {
		return coordinator.BuildLogChunk{More: true, Mark: mark}, nil
	}
	f.buildLogs[tuple.Name] = queue[1:]
	return queue[0].chunk, queue[0].err
}

var _ coordinator.Client = (*fakeCoordinator)(nil)
