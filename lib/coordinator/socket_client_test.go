// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/trovewatch/lib/clock"
	"github.com/bureau-foundation/trovewatch/lib/event"
	"github.com/bureau-foundation/trovewatch/lib/failure"
	"github.com/bureau-foundation/trovewatch/lib/logchunk"
	"github.com/bureau-foundation/trovewatch/lib/rpc"
	"github.com/bureau-foundation/trovewatch/lib/testutil"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// memoryBackend is an in-memory coordinator for one job.
type memoryBackend struct {
	job      Job
	logs     []LogEntry
	building []trove.Tuple
	buildLog string

	// stream is published to every subscriber.
	stream []event.Event

	mu             sync.Mutex
	subscriptions  []Subscription
	unsubscribed   []string
	publishersDone sync.WaitGroup
}

func (b *memoryBackend) GetJob(_ context.Context, jobID trove.JobID, withTroves bool) (*Job, error) {
	if jobID != b.job.ID {
		return nil, fmt.Errorf("no such job %d", jobID)
	}
	job := b.job
	if !withTroves {
		job.Troves = nil
	}
	return &job, nil
}

func (b *memoryBackend) GetJobLogs(_ context.Context, _ trove.JobID, mark int) ([]LogEntry, error) {
	if mark >= len(b.logs) {
		return nil, nil
	}
	return b.logs[mark:], nil
}

func (b *memoryBackend) ListTrovesByState(_ context.Context, _ trove.JobID, state trove.TroveState) (TrovesByState, error) {
	if state != trove.TroveStateBuilding {
		return TrovesByState{}, nil
	}
	return TrovesByState{state: b.building}, nil
}

func (b *memoryBackend) GetTroveBuildLog(_ context.Context, _ trove.JobID, _ trove.Tuple, mark int64) (BuildLogChunk, error) {
	if mark > int64(len(b.buildLog)) {
		return BuildLogChunk{}, fmt.Errorf("mark %d beyond end of log", mark)
	}
	return BuildLogChunk{More: false, Text: b.buildLog[mark:], Mark: int64(len(b.buildLog))}, nil
}

func (b *memoryBackend) Subscribe(_ context.Context, subscription Subscription) error {
	b.mu.Lock()
	b.subscriptions = append(b.subscriptions, subscription)
	b.mu.Unlock()

	b.publishersDone.Add(1)
	go func() {
		defer b.publishersDone.Done()
		publisher, err := DialPublisher(context.Background(), subscription.Endpoint)
		if err != nil {
			return
		}
		for _, published := range b.stream {
			if err := publisher.Publish(context.Background(), published); err != nil {
				publisher.Close()
				return
			}
		}
		publisher.CloseStream(context.Background())
	}()
	return nil
}

func (b *memoryBackend) Unsubscribe(_ context.Context, subscriptionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribed = append(b.unsubscribed, subscriptionID)
	return nil
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		job: Job{
			ID:      12,
			State:   trove.JobStateFailed,
			Status:  "Failed while building tmpwatch",
			Failure: failure.Freeze(failure.NewBuildFailed("make exited 2", "Traceback ...")),
			Troves:  []trove.Tuple{tmpwatch},
		},
		logs: []LogEntry{
			{Timestamp: epoch, Message: "job loaded"},
			{Timestamp: epoch.Add(time.Second), Message: "building 1 trove", Args: []string{"tmpwatch"}},
		},
		building: []trove.Tuple{tmpwatch},
		buildLog: strings.Repeat("gcc -O2 -c tmpwatch.c -o tmpwatch.o\n", 40),
		stream:   sampleEvents(),
	}
}

// startCoordinator serves backend on a unix socket for the test's
// duration and returns a client for it.
func startCoordinator(t *testing.T, backend Backend, compression logchunk.Compression) *SocketClient {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "coordinator.sock")
	server := rpc.NewServer(socketPath, testLogger())
	RegisterActions(server, backend, compression)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, done, 5*time.Second, "coordinator did not stop")
	})
	testutil.WaitForSocket(t, socketPath)

	client, err := NewSocketClient("unix://"+socketPath, testLogger())
	if err != nil {
		t.Fatalf("NewSocketClient: %v", err)
	}
	return client
}

func TestSocketClientGetJob(t *testing.T) {
	client := startCoordinator(t, newMemoryBackend(), logchunk.Zstd)
	ctx := context.Background()

	job, err := client.GetJob(ctx, 12, true)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.ID != 12 || job.State != trove.JobStateFailed || !job.IsFinished() {
		t.Errorf("job = %+v", job)
	}
	if len(job.Troves) != 1 || job.Troves[0] != tmpwatch {
		t.Errorf("troves = %v", job.Troves)
	}
	reason, err := job.FailureReason()
	if err != nil {
		t.Fatalf("FailureReason: %v", err)
	}
	if !failure.Equal(reason, failure.NewBuildFailed("make exited 2", "Traceback ...")) {
		t.Errorf("reason = %#v", reason)
	}

	withoutTroves, err := client.GetJob(ctx, 12, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(withoutTroves.Troves) != 0 {
		t.Errorf("troves returned without being requested: %v", withoutTroves.Troves)
	}

	_, err = client.GetJob(ctx, 99, false)
	var serviceError *rpc.ServiceError
	if !errors.As(err, &serviceError) || !strings.Contains(serviceError.Message, "no such job 99") {
		t.Errorf("GetJob(99) = %v", err)
	}
}

func TestSocketClientGetJobLogs(t *testing.T) {
	backend := newMemoryBackend()
	client := startCoordinator(t, backend, logchunk.Zstd)

	entries, err := client.GetJobLogs(context.Background(), 12, 0)
	if err != nil {
		t.Fatalf("GetJobLogs: %v", err)
	}
	if len(entries) != 2 || entries[0].Message != "job loaded" || !entries[1].Timestamp.Equal(epoch.Add(time.Second)) {
		t.Errorf("entries = %+v", entries)
	}
	if !slices.Equal(entries[1].Args, []string{"tmpwatch"}) {
		t.Errorf("args = %v", entries[1].Args)
	}

	rest, err := client.GetJobLogs(context.Background(), 12, 2)
	if err != nil || len(rest) != 0 {
		t.Errorf("GetJobLogs past end = %v, %v; want empty", rest, err)
	}
}

func TestSocketClientListTrovesByState(t *testing.T) {
	client := startCoordinator(t, newMemoryBackend(), logchunk.Zstd)

	troves, err := client.ListTrovesByState(context.Background(), 12, trove.TroveStateBuilding)
	if err != nil {
		t.Fatalf("ListTrovesByState: %v", err)
	}
	building := troves[trove.TroveStateBuilding]
	if len(building) != 1 || building[0] != tmpwatch {
		t.Errorf("building = %v", building)
	}

	none, err := client.ListTrovesByState(context.Background(), 12, trove.TroveStateBuilt)
	if err != nil || len(none[trove.TroveStateBuilt]) != 0 {
		t.Errorf("built = %v, %v", none, err)
	}
}

func TestSocketClientGetTroveBuildLog(t *testing.T) {
	for _, compression := range []logchunk.Compression{logchunk.None, logchunk.LZ4, logchunk.Zstd} {
		t.Run(compression.String(), func(t *testing.T) {
			backend := newMemoryBackend()
			client := startCoordinator(t, backend, compression)

			chunk, err := client.GetTroveBuildLog(context.Background(), 12, tmpwatch, 37)
			if err != nil {
				t.Fatalf("GetTroveBuildLog: %v", err)
			}
			if chunk.More || chunk.Text != backend.buildLog[37:] || chunk.Mark != int64(len(backend.buildLog)) {
				t.Errorf("chunk = more %v, %d bytes, mark %d", chunk.More, len(chunk.Text), chunk.Mark)
			}
		})
	}
}

func TestNewSocketClientAddresses(t *testing.T) {
	client, err := NewSocketClient("/var/lib/rmake/socket", nil)
	if err != nil {
		t.Fatalf("bare path: %v", err)
	}
	if client.URI() != "unix:///var/lib/rmake/socket" {
		t.Errorf("URI = %q", client.URI())
	}
	if _, err := NewSocketClient("http://coordinator:9999", nil); err == nil {
		t.Error("http coordinator accepted by the socket client")
	}
}

// recording collects events delivered through ListenToEvents.
type recording struct {
	event.NopSubscriber
	states []string
}

func (r *recording) JobStateUpdated(job trove.JobID, state trove.JobState, _ string) {
	r.states = append(r.states, fmt.Sprintf("job %d %s", job, state))
}

func (r *recording) TroveStateUpdated(key trove.Key, state trove.TroveState, _ string) {
	r.states = append(r.states, fmt.Sprintf("%s %s", key.Trove.Name, state))
}

func (r *recording) TrovePreparingChroot(key trove.Key, host, path string) {
	r.states = append(r.states, fmt.Sprintf("%s chroot %s:%s", key.Trove.Name, host, path))
}

var wantRecording = []string{
	"job 12 Building",
	"tmpwatch:source Building",
	"tmpwatch:source chroot _local_:/var/rmake/chroots/tmpwatch",
	"tmpwatch:source Built",
	"job 12 Built",
}

func TestSocketClientListenServingUnix(t *testing.T) {
	backend := newMemoryBackend()
	client := startCoordinator(t, backend, logchunk.Zstd)
	eventsPath := filepath.Join(testutil.SocketDir(t), "events.sock")
	eventsAddress := "unix://" + eventsPath

	subscriber := &recording{}
	err := client.ListenToEvents(context.Background(), eventsAddress, 12, subscriber, ListenOptions{
		Serve:            true,
		ShowTroveDetails: true,
		Clock:            clock.Fake(epoch),
	})
	if err != nil {
		t.Fatalf("ListenToEvents: %v", err)
	}
	backend.publishersDone.Wait()

	if !slices.Equal(subscriber.states, wantRecording) {
		t.Errorf("states = %q, want %q", subscriber.states, wantRecording)
	}
	// The endpoint belongs to whoever chose it, not to the listener.
	if _, err := os.Lstat(eventsPath); err != nil {
		t.Errorf("served endpoint removed: %v", err)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.subscriptions) != 1 {
		t.Fatalf("%d subscriptions, want 1", len(backend.subscriptions))
	}
	subscription := backend.subscriptions[0]
	if subscription.JobID != 12 || subscription.Endpoint != eventsAddress || !subscription.ShowTroveDetails || subscription.ID == "" {
		t.Errorf("subscription = %+v", subscription)
	}
	if !slices.Equal(backend.unsubscribed, []string{subscription.ID}) {
		t.Errorf("unsubscribed = %v, want [%s]", backend.unsubscribed, subscription.ID)
	}
}

func TestSocketClientListenServingHTTP(t *testing.T) {
	backend := newMemoryBackend()
	client := startCoordinator(t, backend, logchunk.Zstd)

	subscriber := &recording{}
	err := client.ListenToEvents(context.Background(), "http://127.0.0.1", 12, subscriber, ListenOptions{
		Serve: true,
		Clock: clock.Fake(epoch),
	})
	if err != nil {
		t.Fatalf("ListenToEvents: %v", err)
	}
	backend.publishersDone.Wait()

	if !slices.Equal(subscriber.states, wantRecording) {
		t.Errorf("states = %q, want %q", subscriber.states, wantRecording)
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if endpoint := backend.subscriptions[0].Endpoint; !strings.HasPrefix(endpoint, "http://127.0.0.1:") {
		t.Errorf("advertised endpoint %q lacks the bound port", endpoint)
	}
}

func TestSocketClientListenRejectsBadEndpoint(t *testing.T) {
	client := startCoordinator(t, newMemoryBackend(), logchunk.Zstd)

	// An empty endpoint address cannot be hosted.
	err := client.ListenToEvents(context.Background(), "", 12, &recording{}, ListenOptions{Serve: true})
	if err == nil {
		t.Fatal("ListenToEvents with no endpoint succeeded")
	}
}
