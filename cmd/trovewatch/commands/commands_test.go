// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/trovewatch/cmd/trovewatch/cli"
	"github.com/bureau-foundation/trovewatch/lib/clock"
	"github.com/bureau-foundation/trovewatch/lib/codec"
	"github.com/bureau-foundation/trovewatch/lib/config"
	"github.com/bureau-foundation/trovewatch/lib/coordinator"
	"github.com/bureau-foundation/trovewatch/lib/event"
	"github.com/bureau-foundation/trovewatch/lib/failure"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

var tmpwatch = trove.NewTuple("tmpwatch:source", "/localhost@rpl:linux/2.9.0-1", "")

// scriptedCoordinator replays a fixed event list and reports a fixed
// final job.
type scriptedCoordinator struct {
	socketPath string
	events     []event.Event
	final      coordinator.Job
	listened   coordinator.ListenOptions

	// GetJob reports the job as building until the stream has been
	// replayed, and final afterwards.
	replayed bool
}

func (s *scriptedCoordinator) URI() string { return "unix://" + s.socketPath }

func (s *scriptedCoordinator) ListenToEvents(ctx context.Context, _ string, _ trove.JobID, subscriber event.Subscriber, options coordinator.ListenOptions) error {
	s.listened = options
	source := &replaySource{events: make(chan event.Event, len(s.events))}
	for _, e := range s.events {
		source.events <- e
	}
	close(source.events)
	defer func() { s.replayed = true }()
	// The fake clock never fires; the stream always ends first.
	return coordinator.Listen(ctx, source, subscriber, clock.Fake(time.Time{}), options.PollInterval)
}

func (s *scriptedCoordinator) GetJob(_ context.Context, jobID trove.JobID, _ bool) (*coordinator.Job, error) {
	job := s.final
	if !s.replayed {
		job = coordinator.Job{State: trove.JobStateBuilding}
	}
	job.ID = jobID
	return &job, nil
}

func (s *scriptedCoordinator) GetJobLogs(context.Context, trove.JobID, int) ([]coordinator.LogEntry, error) {
	return nil, nil
}

func (s *scriptedCoordinator) ListTrovesByState(context.Context, trove.JobID, trove.TroveState) (coordinator.TrovesByState, error) {
	return coordinator.TrovesByState{}, nil
}

func (s *scriptedCoordinator) GetTroveBuildLog(_ context.Context, _ trove.JobID, _ trove.Tuple, mark int64) (coordinator.BuildLogChunk, error) {
	return coordinator.BuildLogChunk{Mark: mark}, nil
}

type replaySource struct {
	events chan event.Event
}

func (s *replaySource) Events() <-chan event.Event { return s.events }
func (s *replaySource) Err() error                 { return nil }

type harness struct {
	env         *environment
	stdout      bytes.Buffer
	stderr      bytes.Buffer
	coordinator *scriptedCoordinator
	connected   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv(config.EnvVar, "")
	h := &harness{coordinator: &scriptedCoordinator{final: coordinator.Job{State: trove.JobStateBuilt}}}
	h.env = &environment{
		stdout: &h.stdout,
		stdin:  strings.NewReader(""),
		stderr: &h.stderr,
		connect: func(socketPath string, _ *slog.Logger) (coordinator.Client, error) {
			h.connected = socketPath
			h.coordinator.socketPath = socketPath
			return h.coordinator, nil
		},
		newLogger: func(slog.Level) *slog.Logger { return slog.New(slog.DiscardHandler) },
	}
	return h
}

func (h *harness) run(args ...string) error {
	return newRoot(h.env).Execute(args)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trovewatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWatchPrintsProgress(t *testing.T) {
	h := newHarness(t)
	key := trove.NewKey(42, tmpwatch)
	h.coordinator.events = []event.Event{
		event.NewTroveStateUpdated(key, trove.TroveStateBuilding, ""),
		event.NewJobStateUpdated(42, trove.JobStateBuilt, ""),
	}

	if err := h.run("watch", "42", "--color", "never", "--endpoint", "unix:///tmp/relay.sock", "--no-serve"); err != nil {
		t.Fatalf("watch: %v", err)
	}

	output := h.stdout.String()
	for _, want := range []string{
		"[42] - tmpwatch:source - State: Building\n",
		"[42] - State: Built\n",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output lacks %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "Tailing") {
		t.Errorf("build logs tailed without --build-logs:\n%s", output)
	}
	if h.connected != config.Default().Coordinator.SocketPath {
		t.Errorf("connected to %q, want the default socket", h.connected)
	}
	if h.coordinator.listened.Serve {
		t.Error("listened with Serve despite --no-serve")
	}
}

func TestWatchConfigAndFlags(t *testing.T) {
	h := newHarness(t)
	h.coordinator.events = []event.Event{
		event.NewTroveStateUpdated(trove.NewKey(42, tmpwatch), trove.TroveStateBuilding, ""),
	}
	configPath := writeConfig(t, `
coordinator:
  socket_path: /srv/rmake/socket
monitor:
  show_build_logs: true
  show_trove_details: true
  color: never
  endpoint_dir: `+t.TempDir()+`
`)

	if err := h.run("watch", "42", "--config", configPath, "--socket", "/tmp/override.sock"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if h.connected != "/tmp/override.sock" {
		t.Errorf("connected to %q, want the --socket override", h.connected)
	}
	if !strings.Contains(h.stdout.String(), "Tailing tmpwatch:source build log:") {
		t.Errorf("show_build_logs from config ignored:\n%s", h.stdout.String())
	}
	if !h.coordinator.listened.ShowTroveDetails || !h.coordinator.listened.Serve {
		t.Errorf("listen options = %+v", h.coordinator.listened)
	}
}

func TestWatchValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no job", []string{"watch"}},
		{"two jobs", []string{"watch", "1", "2"}},
		{"bad job", []string{"watch", "forty-two"}},
		{"bad color", []string{"watch", "42", "--color", "sometimes"}},
		{"bad interval", []string{"watch", "42", "--poll-interval", "soon"}},
		{"missing config", []string{"watch", "42", "--config", "/nonexistent/trovewatch.yaml"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.run(test.args...)
			var toolErr *cli.ToolError
			if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryValidation {
				t.Fatalf("run(%q) = %v, want a validation error", test.args, err)
			}
			if h.connected != "" {
				t.Error("connected despite invalid input")
			}
		})
	}
}

func TestWatchMissingSocket(t *testing.T) {
	h := newHarness(t)
	h.env.connect = defaultEnvironment().connect
	socketPath := filepath.Join(t.TempDir(), "coordinator.sock")

	err := h.run("watch", "42", "--socket", socketPath, "--endpoint", "unix:///tmp/unused.sock", "--no-serve")
	var toolErr *cli.ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryTransient {
		t.Fatalf("watch = %v, want a transient ToolError", err)
	}
	if toolErr.Hint == "" || !strings.Contains(err.Error(), socketPath) {
		t.Errorf("error %q lacks hint or socket path", err)
	}
}

func TestWaitBuilt(t *testing.T) {
	h := newHarness(t)
	h.coordinator.events = []event.Event{event.NewJobStateUpdated(42, trove.JobStateBuilt, "")}

	if err := h.run("wait", "42", "--endpoint", "unix:///tmp/relay.sock"); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got := h.stdout.String(); got != "Job 42: Built\n" {
		t.Errorf("output = %q", got)
	}
}

func TestWaitFailed(t *testing.T) {
	h := newHarness(t)
	h.coordinator.events = []event.Event{event.NewJobStateUpdated(42, trove.JobStateFailed, "")}
	h.coordinator.final = coordinator.Job{
		State:   trove.JobStateFailed,
		Failure: failure.Freeze(failure.NewBuildFailed("make exited 2", "")),
	}

	err := h.run("wait", "42", "--endpoint", "unix:///tmp/relay.sock")
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("wait = %v, want exit code 1", err)
	}
	want := "Job 42: Failed\n  make exited 2\n"
	if got := h.stdout.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestWaitUnfinished(t *testing.T) {
	h := newHarness(t)
	h.coordinator.final = coordinator.Job{State: trove.JobStateBuilding}

	err := h.run("wait", "42", "--endpoint", "unix:///tmp/relay.sock")
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 2 {
		t.Fatalf("wait = %v, want exit code 2", err)
	}
}

func TestWaitRejectsDisplayFlags(t *testing.T) {
	h := newHarness(t)
	if err := h.run("wait", "42", "--build-logs"); err == nil {
		t.Fatal("wait accepted --build-logs")
	}
}

func frozenBytes(t *testing.T, frozen failure.Frozen) []byte {
	t.Helper()
	data, err := codec.Marshal(frozen)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestFailureShowFromStdin(t *testing.T) {
	h := newHarness(t)
	reason := failure.NewBuildFailed("make exited 2", "Traceback (most recent call last):\n  build.py")
	h.env.stdin = bytes.NewReader(frozenBytes(t, failure.Freeze(reason)))

	if err := h.run("failure", "show", "--traceback"); err != nil {
		t.Fatalf("failure show: %v", err)
	}
	output := h.stdout.String()
	for _, want := range []string{
		"Summary: make exited 2\n",
		"Detail:\nFailed while building: make exited 2\n",
		"Traceback:\nTraceback (most recent call last):\n  build.py\n",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output lacks %q:\n%s", want, output)
		}
	}
}

func TestFailureShowFromFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "reason.cbor")
	if err := os.WriteFile(path, frozenBytes(t, failure.Freeze(failure.Stopped{Message: "cancelled"})), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := h.run("failure", "show", path); err != nil {
		t.Fatalf("failure show: %v", err)
	}
	if !strings.Contains(h.stdout.String(), "Summary: Stopped: cancelled\n") {
		t.Errorf("output:\n%s", h.stdout.String())
	}
}

func TestFailureShowEmpty(t *testing.T) {
	h := newHarness(t)
	h.env.stdin = bytes.NewReader(frozenBytes(t, failure.Frozen{}))
	if err := h.run("failure", "show"); err != nil {
		t.Fatalf("failure show: %v", err)
	}
	if h.stdout.String() != "No failure\n" {
		t.Errorf("output = %q", h.stdout.String())
	}
}

func TestFailureShowUnknownTag(t *testing.T) {
	h := newHarness(t)
	h.env.stdin = bytes.NewReader(frozenBytes(t, failure.Frozen{Tag: "99", Payload: "mystery"}))

	err := h.run("failure", "show")
	var unknown *failure.UnknownTagError
	if !errors.As(err, &unknown) || unknown.Tag != 99 {
		t.Fatalf("failure show = %v, want UnknownTagError 99", err)
	}
	if !strings.Contains(err.Error(), `"mystery"`) {
		t.Errorf("error %q lacks the diagnostic notation", err)
	}
}

func TestFailureShowGarbage(t *testing.T) {
	h := newHarness(t)
	h.env.stdin = bytes.NewReader([]byte{0xff})
	err := h.run("failure", "show")
	var toolErr *cli.ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryValidation {
		t.Fatalf("failure show = %v, want a validation error", err)
	}
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	if err := h.run("version"); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(h.stdout.String(), "0.") {
		t.Errorf("version output = %q", h.stdout.String())
	}
}

const replayRecording = `
job: {id: 42, state: loaded}
events:
  - {kind: JOB_STATE_UPDATED, state: built}
`

func TestReplayValidation(t *testing.T) {
	recording := writeConfig(t, replayRecording)
	socket := filepath.Join(t.TempDir(), "replay.sock")
	tests := []struct {
		name string
		args []string
	}{
		{"no recording", []string{"replay", "--socket", socket}},
		{"no socket", []string{"replay", recording}},
		{"bad compression", []string{"replay", recording, "--socket", socket, "--compression", "gzip"}},
		{"negative interval", []string{"replay", recording, "--socket", socket, "--interval", "-1s"}},
		{"bad log level", []string{"replay", recording, "--socket", socket, "--log-level", "chatty"}},
		{"missing recording", []string{"replay", "/nonexistent/job.yaml", "--socket", socket}},
		{"bad recording", []string{"replay", writeConfig(t, "job: {id: 0}"), "--socket", socket}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.run(test.args...)
			var toolErr *cli.ToolError
			if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryValidation {
				t.Fatalf("run(%q) = %v, want a validation error", test.args, err)
			}
			if h.stdout.Len() != 0 {
				t.Errorf("printed %q before failing", h.stdout.String())
			}
		})
	}
}

func TestReplayUnusableSocket(t *testing.T) {
	h := newHarness(t)
	socket := filepath.Join(t.TempDir(), "missing", "replay.sock")

	err := h.run("replay", writeConfig(t, replayRecording), "--socket", socket, "--compression", "lz4")
	var toolErr *cli.ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryTransient {
		t.Fatalf("replay = %v, want a transient error", err)
	}
	if got := h.stdout.String(); got != "Replaying job 42 on "+socket+"\n" {
		t.Errorf("stdout = %q", got)
	}
}
