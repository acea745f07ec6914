// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/bureau-foundation/trovewatch/lib/clock"
	"github.com/bureau-foundation/trovewatch/lib/coordinator"
	"github.com/bureau-foundation/trovewatch/lib/event"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// Display is a subscriber that a session primes, listens with, and
// closes.
type Display interface {
	event.Subscriber
	event.Exiter

	// Prime brings the display up to date with the job's current
	// state before live events arrive.
	Prime(ctx context.Context, jobID trove.JobID) error

	// IsFinished reports whether a finished job state has been seen.
	IsFinished() bool

	// Close releases the display. It returns the first error the
	// display hit writing its output, if any.
	Close() error
}

// tracker holds the finished flag and exit policy shared by every
// display.
type tracker struct {
	client       coordinator.Client
	stayAttached bool
	finished     bool
}

func (t *tracker) observe(state trove.JobState) {
	if state.IsFinished() {
		t.finished = true
	}
}

// primeFinished marks the job finished if the coordinator already
// reports it so. A job that finished before the session started would
// otherwise never produce the event that ends the loop.
func (t *tracker) primeFinished(ctx context.Context, jobID trove.JobID) error {
	job, err := t.client.GetJob(ctx, jobID, false)
	if err != nil {
		return fmt.Errorf("fetching job %s: %w", jobID, err)
	}
	t.observe(job.State)
	return nil
}

func (t *tracker) IsFinished() bool { return t.finished }

func (t *tracker) ShouldExit() bool { return t.finished && !t.stayAttached }

// SilentDisplay prints nothing. It exists so that waiting for a job
// uses the same session machinery as watching one.
type SilentDisplay struct {
	event.NopSubscriber
	tracker
}

// NewSilentDisplay returns a display that only tracks completion.
func NewSilentDisplay(client coordinator.Client, options Options) *SilentDisplay {
	return &SilentDisplay{tracker: tracker{client: client, stayAttached: options.StayAttached}}
}

func (d *SilentDisplay) JobStateUpdated(_ trove.JobID, state trove.JobState, _ string) {
	d.observe(state)
}

// Prime checks whether the job has already finished.
func (d *SilentDisplay) Prime(ctx context.Context, jobID trove.JobID) error {
	return d.primeFinished(ctx, jobID)
}

func (d *SilentDisplay) Close() error { return nil }

// tailCursor is the tail state of one trove.
type tailCursor struct {
	mark    int64
	tailing bool
}

// JobLogDisplay prints a line per status event and tails build logs.
type JobLogDisplay struct {
	tracker

	out           io.Writer
	palette       palette
	clock         clock.Clock
	logger        *slog.Logger
	showBuildLogs bool
	pollInterval  time.Duration

	cursors  map[trove.Key]*tailCursor
	lastPoll time.Time

	// ctx is the context of the most recent Prime or Poll call. The
	// final drain on a finished job runs from an event handler, which
	// has no context of its own.
	ctx context.Context

	writeErr error
}

// NewJobLogDisplay returns a display writing to options.Out.
func NewJobLogDisplay(client coordinator.Client, options Options) *JobLogDisplay {
	options = options.withDefaults()
	return &JobLogDisplay{
		tracker:       tracker{client: client, stayAttached: options.StayAttached},
		out:           options.Out,
		palette:       newPalette(options.Out, options.Color),
		clock:         options.Clock,
		logger:        options.Logger,
		showBuildLogs: options.ShowBuildLogs,
		pollInterval:  options.PollInterval,
		cursors:       make(map[trove.Key]*tailCursor),
		ctx:           context.Background(),
	}
}

// Prime replays the job log, starts tailing every trove that is
// building right now, and checks whether the job has already finished.
func (d *JobLogDisplay) Prime(ctx context.Context, jobID trove.JobID) error {
	d.ctx = ctx

	mark := 0
	for {
		entries, err := d.client.GetJobLogs(ctx, jobID, mark)
		if err != nil {
			return fmt.Errorf("replaying log of job %s: %w", jobID, err)
		}
		if len(entries) == 0 {
			break
		}
		mark += len(entries)
		for _, entry := range entries {
			d.write(fmt.Sprintf("[%s] [%d] - %s\n", entry.Timestamp.Format(time.DateTime), jobID, entry.Message))
		}
	}

	building, err := d.client.ListTrovesByState(ctx, jobID, trove.TroveStateBuilding)
	if err != nil {
		return fmt.Errorf("listing building troves of job %s: %w", jobID, err)
	}
	for _, tuple := range building[trove.TroveStateBuilding] {
		d.tail(trove.NewKey(jobID, tuple))
	}

	return d.primeFinished(ctx, jobID)
}

// Poll fetches new build-log output for every trove being tailed. It
// does nothing if it ran less than one poll interval ago.
//
// A trove whose log reports no more data stops being tracked. A fetch
// error leaves the cursor where it was; the next poll retries from
// the same mark.
func (d *JobLogDisplay) Poll(ctx context.Context) {
	d.ctx = ctx
	if len(d.cursors) == 0 {
		return
	}
	now := d.clock.Now()
	if !d.lastPoll.IsZero() && now.Sub(d.lastPoll) < d.pollInterval {
		return
	}
	d.lastPoll = now

	for _, key := range d.sortedKeys() {
		cursor := d.cursors[key]
		if !cursor.tailing {
			continue
		}
		chunk, err := d.client.GetTroveBuildLog(ctx, key.Job, key.Trove, cursor.mark)
		if err != nil {
			d.logger.Debug("build log fetch failed",
				"job", key.Job,
				"trove", key.Trove.Spec(),
				"mark", cursor.mark,
				"error", err,
			)
			continue
		}
		d.write(chunk.Text)
		if !chunk.More {
			delete(d.cursors, key)
			continue
		}
		cursor.mark = chunk.Mark
	}
}

func (d *JobLogDisplay) sortedKeys() []trove.Key {
	keys := make([]trove.Key, 0, len(d.cursors))
	for key := range d.cursors {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b trove.Key) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}

func (d *JobLogDisplay) tail(key trove.Key) {
	cursor, ok := d.cursors[key]
	if !ok {
		cursor = &tailCursor{}
		d.cursors[key] = cursor
	}
	cursor.tailing = true
	d.write(fmt.Sprintf("Tailing %s build log:\n\n", key.Trove.Name))
}

func (d *JobLogDisplay) stopTailing(key trove.Key) {
	if cursor, ok := d.cursors[key]; ok {
		cursor.tailing = false
	}
}

func (d *JobLogDisplay) JobStateUpdated(job trove.JobID, state trove.JobState, status string) {
	d.observe(state)
	if d.finished {
		d.Poll(d.ctx)
	}
	d.msg("[%d] - State: %s", job, d.palette.jobState(state))
	if status != "" {
		d.msg("[%d] - %s", job, status)
	}
}

func (d *JobLogDisplay) JobLogUpdated(job trove.JobID, _ trove.JobState, message string) {
	d.msg("[%d] %s", job, message)
}

func (d *JobLogDisplay) JobTrovesSet(job trove.JobID, _ []trove.Tuple) {
	d.msg("[%d] - job troves set", job)
}

func (d *JobLogDisplay) TroveStateUpdated(key trove.Key, state trove.TroveState, status string) {
	d.msg("[%d] - %s - State: %s", key.Job, key.Trove.Name, d.palette.troveState(state))
	if status != "" {
		d.msg("[%d] - %s - %s", key.Job, key.Trove.Name, status)
	}
	if state.IsActive() && d.showBuildLogs {
		d.tail(key)
	} else {
		d.stopTailing(key)
	}
}

func (d *JobLogDisplay) TroveLogUpdated(key trove.Key, _ trove.TroveState, status string) {
	d.msg("[%d] - %s - %s", key.Job, key.Trove.Name, status)
}

func (d *JobLogDisplay) TrovePreparingChroot(key trove.Key, host, path string) {
	where := "Chroot at " + path
	if host != event.LocalHost {
		where = fmt.Sprintf("Chroot at Node %s:%s", host, path)
	}
	d.msg("[%d] - %s - %s", key.Job, key.Trove.Name, where)
}

// Close reports the first output error.
func (d *JobLogDisplay) Close() error {
	return d.writeErr
}

type flusher interface {
	Flush() error
}

// msg writes one status line stamped with the wall-clock time.
func (d *JobLogDisplay) msg(format string, args ...any) {
	stamp := d.clock.Now().Format(time.TimeOnly)
	d.write("[" + stamp + "] " + fmt.Sprintf(format, args...) + "\n")
}

func (d *JobLogDisplay) write(text string) {
	if text == "" {
		return
	}
	_, err := io.WriteString(d.out, text)
	if err == nil {
		if f, ok := d.out.(flusher); ok {
			err = f.Flush()
		}
	}
	if err != nil && d.writeErr == nil {
		d.writeErr = fmt.Errorf("writing monitor output: %w", err)
	}
}

var (
	_ Display      = (*SilentDisplay)(nil)
	_ Display      = (*JobLogDisplay)(nil)
	_ event.Poller = (*JobLogDisplay)(nil)
)
