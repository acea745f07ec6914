// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/trovewatch/lib/clock"
	"github.com/bureau-foundation/trovewatch/lib/coordinator"
	"github.com/bureau-foundation/trovewatch/lib/endpoint"
	"github.com/bureau-foundation/trovewatch/lib/event"
	"github.com/bureau-foundation/trovewatch/lib/logchunk"
	"github.com/bureau-foundation/trovewatch/lib/rpc"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// helloTimeout bounds how long a dialing monitor may take to
// identify itself.
const helloTimeout = 10 * time.Second

// Options configures a Coordinator.
type Options struct {
	// Interval is the pause before each event. Zero plays the
	// recording as fast as monitors read it.
	Interval time.Duration

	// Compression packs build-log chunks. Default: none.
	Compression logchunk.Compression

	// Clock paces playback. Default: clock.Real().
	Clock clock.Clock

	// Logger defaults to discarding everything.
	Logger *slog.Logger
}

// Coordinator serves one Script. It implements coordinator.Backend.
type Coordinator struct {
	events      []event.Event
	interval    time.Duration
	compression logchunk.Compression
	clock       clock.Clock
	logger      *slog.Logger

	mu     sync.Mutex
	state  jobState
	played int

	// base is the context of the running server; playbacks derive
	// from it.
	base    context.Context
	plays   map[string]context.CancelFunc
	playing sync.WaitGroup
}

var _ coordinator.Backend = (*Coordinator)(nil)

// New returns a coordinator for script. The script is not modified.
func New(script *Script, options Options) *Coordinator {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	c := &Coordinator{
		events:      script.events,
		interval:    options.Interval,
		compression: options.Compression,
		clock:       options.Clock,
		logger:      options.Logger.With("job", script.job.ID),
		plays:       make(map[string]context.CancelFunc),
	}
	c.state = jobState{
		job:     script.job,
		failure: script.failure,
		logs:    slices.Clone(script.logs),
		troves:  make(map[trove.Tuple]*troveLog),
		now:     options.Clock.Now,
	}
	c.state.job.Troves = slices.Clone(script.job.Troves)
	for _, scripted := range script.troves {
		entry := c.state.track(scripted.tuple)
		entry.state = scripted.state
		entry.text = scripted.buildLog
	}
	return c
}

// Run serves the query protocol on socketPath until ctx is cancelled.
// When hostAddress is set it also hosts an event endpoint there for
// monitors that dial instead of serving. Run returns once every
// playback has stopped.
func (c *Coordinator) Run(ctx context.Context, socketPath, hostAddress string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.base = ctx
	c.mu.Unlock()

	if hostAddress != "" {
		listener, err := listenHosted(hostAddress)
		if err != nil {
			return err
		}
		c.logger.Info("hosting event endpoint", "address", hostAddress)
		c.playing.Add(1)
		go func() {
			defer c.playing.Done()
			c.acceptMonitors(ctx, listener)
		}()
	}

	server := rpc.NewServer(socketPath, c.logger)
	coordinator.RegisterActions(server, c, c.compression)
	err := server.Serve(ctx)

	cancel()
	c.playing.Wait()
	return err
}

// GetJob implements coordinator.Backend.
func (c *Coordinator) GetJob(_ context.Context, jobID trove.JobID, withTroves bool) (*coordinator.Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.state.check(jobID); err != nil {
		return nil, err
	}
	job := c.state.job
	job.Troves = nil
	if withTroves {
		job.Troves = slices.Clone(c.state.job.Troves)
	}
	return &job, nil
}

// GetJobLogs implements coordinator.Backend.
func (c *Coordinator) GetJobLogs(_ context.Context, jobID trove.JobID, mark int) ([]coordinator.LogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.state.check(jobID); err != nil {
		return nil, err
	}
	if mark < 0 || mark >= len(c.state.logs) {
		return nil, nil
	}
	return slices.Clone(c.state.logs[mark:]), nil
}

// ListTrovesByState implements coordinator.Backend. Troves are listed
// in the order the recording introduced them.
func (c *Coordinator) ListTrovesByState(_ context.Context, jobID trove.JobID, state trove.TroveState) (coordinator.TrovesByState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.state.check(jobID); err != nil {
		return nil, err
	}
	result := coordinator.TrovesByState{}
	for _, tuple := range c.state.order {
		if c.state.troves[tuple].state == state {
			result[state] = append(result[state], tuple)
		}
	}
	return result, nil
}

// GetTroveBuildLog implements coordinator.Backend. The whole recorded
// log is available at once; it reports more to come for as long as
// the trove is active.
func (c *Coordinator) GetTroveBuildLog(_ context.Context, jobID trove.JobID, tuple trove.Tuple, mark int64) (coordinator.BuildLogChunk, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.state.check(jobID); err != nil {
		return coordinator.BuildLogChunk{}, err
	}
	entry, ok := c.state.troves[tuple]
	if !ok {
		return coordinator.BuildLogChunk{}, fmt.Errorf("no build log for %s", tuple.Spec())
	}
	if mark < 0 || mark > int64(len(entry.text)) {
		return coordinator.BuildLogChunk{}, fmt.Errorf("mark %d outside build log of %s", mark, tuple.Name)
	}
	return coordinator.BuildLogChunk{
		More: entry.state.IsActive(),
		Text: entry.text[mark:],
		Mark: int64(len(entry.text)),
	}, nil
}

// Subscribe implements coordinator.Backend. Playback to the
// subscriber's endpoint starts immediately.
func (c *Coordinator) Subscribe(_ context.Context, subscription coordinator.Subscription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.state.check(subscription.JobID); err != nil {
		return err
	}
	if c.base == nil {
		return errors.New("replay coordinator is not running")
	}
	if _, exists := c.plays[subscription.ID]; exists {
		return fmt.Errorf("subscription %s already exists", subscription.ID)
	}

	playCtx, cancel := context.WithCancel(c.base)
	c.plays[subscription.ID] = cancel
	logger := c.logger.With("subscription", subscription.ID, "endpoint", subscription.Endpoint)
	logger.Info("monitor subscribed")

	c.playing.Add(1)
	go func() {
		defer c.playing.Done()
		defer c.forget(subscription.ID)
		publisher, err := coordinator.DialPublisher(playCtx, subscription.Endpoint)
		if err != nil {
			logger.Warn("cannot reach monitor", "error", err)
			return
		}
		c.play(playCtx, publisher, subscription.ShowTroveDetails, logger)
	}()
	return nil
}

// Unsubscribe implements coordinator.Backend. Unknown ids are ignored.
func (c *Coordinator) Unsubscribe(_ context.Context, subscriptionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cancel, ok := c.plays[subscriptionID]; ok {
		cancel()
		delete(c.plays, subscriptionID)
		c.logger.Info("monitor unsubscribed", "subscription", subscriptionID)
	}
	return nil
}

func (c *Coordinator) forget(subscriptionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cancel, ok := c.plays[subscriptionID]; ok {
		cancel()
		delete(c.plays, subscriptionID)
	}
}

// play sends every event to publisher, then ends the stream. Trove
// log events only go to monitors that asked for trove details.
func (c *Coordinator) play(ctx context.Context, publisher *coordinator.Publisher, showTroveDetails bool, logger *slog.Logger) {
	for index, next := range c.events {
		if err := c.pause(ctx); err != nil {
			publisher.Close()
			return
		}
		c.advance(index)
		if next.Kind == event.TroveLogUpdated && !showTroveDetails {
			continue
		}
		if err := publisher.Publish(ctx, next); err != nil {
			logger.Debug("monitor stopped listening", "event", index, "error", err)
			publisher.Close()
			return
		}
	}
	if err := publisher.CloseStream(ctx); err != nil {
		logger.Debug("closing event stream", "error", err)
		return
	}
	logger.Info("recording played", "events", len(c.events))
}

func (c *Coordinator) pause(ctx context.Context) error {
	if c.interval <= 0 {
		return ctx.Err()
	}
	timer := c.clock.NewTimer(c.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// advance applies every event up to and including index to the
// served state. Events already applied are not applied again.
func (c *Coordinator) advance(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ; c.played <= index; c.played++ {
		if err := event.Dispatch(&c.state, c.events[c.played]); err != nil {
			c.logger.Error("applying recorded event", "event", c.played, "error", err)
		}
	}
}

func (c *Coordinator) acceptMonitors(ctx context.Context, listener net.Listener) {
	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()
	defer listener.Close()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			c.logger.Error("accepting monitor", "error", err)
			continue
		}
		c.playing.Add(1)
		go func() {
			defer c.playing.Done()
			c.serveDialer(ctx, conn)
		}()
	}
}

// serveDialer plays the recording to a monitor that dialed the hosted
// endpoint.
func (c *Coordinator) serveDialer(ctx context.Context, conn net.Conn) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	hello, err := coordinator.AcceptHello(conn)
	if err != nil {
		c.logger.Debug("dropping monitor", "error", err)
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})

	c.mu.Lock()
	err = c.state.check(hello.JobID)
	c.mu.Unlock()
	if err != nil {
		c.logger.Warn("monitor asked for another job", "requested", hello.JobID)
		conn.Close()
		return
	}

	c.logger.Info("monitor connected", "show_trove_details", hello.ShowTroveDetails)
	c.play(ctx, coordinator.NewPublisher(conn), hello.ShowTroveDetails, c.logger)
}

// listenHosted listens on an endpoint address, replacing a stale unix
// socket.
func listenHosted(address string) (net.Listener, error) {
	network, err := endpoint.Parse(address)
	if err != nil {
		return nil, err
	}
	if network.Network == "unix" {
		if err := os.Remove(network.Address); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("removing stale socket %s: %w", network.Address, err)
		}
	}
	listener, err := net.Listen(network.Network, network.Address)
	if err != nil {
		return nil, fmt.Errorf("hosting event endpoint %s: %w", address, err)
	}
	return listener, nil
}
