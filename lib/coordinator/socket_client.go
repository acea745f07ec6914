// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/trovewatch/lib/endpoint"
	"github.com/bureau-foundation/trovewatch/lib/event"
	"github.com/bureau-foundation/trovewatch/lib/rpc"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// unsubscribeTimeout bounds the best-effort unsubscribe after a
// session ends, which may run after the session's context is done.
const unsubscribeTimeout = 5 * time.Second

// SocketClient is a Client for a coordinator reachable on a unix
// socket.
type SocketClient struct {
	uri    string
	rpc    *rpc.Client
	logger *slog.Logger
}

var _ Client = (*SocketClient)(nil)

// NewSocketClient returns a client for the coordinator at uri, which
// is a unix:// address or a bare socket path.
func NewSocketClient(uri string, logger *slog.Logger) (*SocketClient, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if !strings.Contains(uri, "://") {
		uri = endpoint.SchemeUnix + uri
	}
	network, err := endpoint.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("coordinator address: %w", err)
	}
	if network.Network != "unix" {
		return nil, fmt.Errorf("coordinator address %q: %w", uri, endpoint.ErrUnsupportedScheme)
	}
	return &SocketClient{uri: uri, rpc: rpc.NewClient(network.Address), logger: logger}, nil
}

// URI implements Client.
func (c *SocketClient) URI() string { return c.uri }

// GetJob implements Client.
func (c *SocketClient) GetJob(ctx context.Context, jobID trove.JobID, withTroves bool) (*Job, error) {
	var job Job
	err := c.rpc.Call(ctx, ActionGetJob, map[string]any{
		"job_id":      jobID,
		"with_troves": withTroves,
	}, &job)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJobLogs implements Client.
func (c *SocketClient) GetJobLogs(ctx context.Context, jobID trove.JobID, mark int) ([]LogEntry, error) {
	var entries []LogEntry
	err := c.rpc.Call(ctx, ActionGetJobLogs, map[string]any{
		"job_id": jobID,
		"mark":   mark,
	}, &entries)
	return entries, err
}

// ListTrovesByState implements Client.
func (c *SocketClient) ListTrovesByState(ctx context.Context, jobID trove.JobID, state trove.TroveState) (TrovesByState, error) {
	var troves TrovesByState
	err := c.rpc.Call(ctx, ActionListTrovesByState, map[string]any{
		"job_id": jobID,
		"state":  state,
	}, &troves)
	return troves, err
}

// GetTroveBuildLog implements Client.
func (c *SocketClient) GetTroveBuildLog(ctx context.Context, jobID trove.JobID, tuple trove.Tuple, mark int64) (BuildLogChunk, error) {
	var reply buildLogReply
	err := c.rpc.Call(ctx, ActionGetTroveBuildLog, map[string]any{
		"job_id": jobID,
		"trove":  tuple,
		"mark":   mark,
	}, &reply)
	if err != nil {
		return BuildLogChunk{}, err
	}
	text, err := reply.Chunk.Unpack()
	if err != nil {
		return BuildLogChunk{}, fmt.Errorf("build log of %s: %w", tuple.Name, err)
	}
	return BuildLogChunk{More: reply.More, Text: text, Mark: reply.Mark}, nil
}

// ListenToEvents implements Client. When serving, it hosts a Listener
// at endpointAddress and subscribes it for the session's duration.
// Otherwise it dials endpointAddress and reads the stream offered
// there.
func (c *SocketClient) ListenToEvents(ctx context.Context, endpointAddress string, jobID trove.JobID, subscriber event.Subscriber, options ListenOptions) error {
	if options.Logger == nil {
		options.Logger = c.logger
	}
	options = options.withDefaults()
	if options.Serve {
		return c.serveEvents(ctx, endpointAddress, jobID, subscriber, options)
	}

	stream, err := Dial(ctx, endpointAddress, Hello{JobID: jobID, ShowTroveDetails: options.ShowTroveDetails})
	if err != nil {
		return err
	}
	defer stream.Close()
	return Listen(ctx, stream, subscriber, options.Clock, options.PollInterval)
}

func (c *SocketClient) serveEvents(ctx context.Context, endpointAddress string, jobID trove.JobID, subscriber event.Subscriber, options ListenOptions) error {
	listener, err := NewListener(endpointAddress, options.Logger)
	if err != nil {
		return err
	}
	defer listener.Close()

	subscription := Subscription{
		ID:               uuid.NewString(),
		JobID:            jobID,
		Endpoint:         listener.Address(),
		ShowTroveDetails: options.ShowTroveDetails,
	}
	if err := c.rpc.Call(ctx, ActionSubscribe, map[string]any{
		"subscription":       subscription.ID,
		"job_id":             subscription.JobID,
		"endpoint":           subscription.Endpoint,
		"show_trove_details": subscription.ShowTroveDetails,
	}, nil); err != nil {
		return fmt.Errorf("subscribing to job %s: %w", jobID, err)
	}
	options.Logger.Debug("subscribed to job events",
		"job", jobID,
		"subscription", subscription.ID,
		"endpoint", subscription.Endpoint,
	)

	defer func() {
		unsubscribeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unsubscribeTimeout)
		defer cancel()
		if err := c.rpc.Call(unsubscribeCtx, ActionUnsubscribe, map[string]any{
			"subscription": subscription.ID,
		}, nil); err != nil {
			options.Logger.Debug("unsubscribe failed", "subscription", subscription.ID, "error", err)
		}
	}()

	return Listen(ctx, listener, subscriber, options.Clock, options.PollInterval)
}
