// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/trovewatch/lib/codec"
	"github.com/bureau-foundation/trovewatch/lib/logchunk"
	"github.com/bureau-foundation/trovewatch/lib/rpc"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// Backend answers coordinator queries. A coordinator (or a relay in
// front of one) implements it and exposes it with RegisterActions.
type Backend interface {
	GetJob(ctx context.Context, jobID trove.JobID, withTroves bool) (*Job, error)
	GetJobLogs(ctx context.Context, jobID trove.JobID, mark int) ([]LogEntry, error)
	ListTrovesByState(ctx context.Context, jobID trove.JobID, state trove.TroveState) (TrovesByState, error)
	GetTroveBuildLog(ctx context.Context, jobID trove.JobID, tuple trove.Tuple, mark int64) (BuildLogChunk, error)
	Subscribe(ctx context.Context, subscription Subscription) error
	Unsubscribe(ctx context.Context, subscriptionID string) error
}

// RegisterActions registers every query action on server, answering
// from backend. Build-log text is packed with compression.
func RegisterActions(server *rpc.Server, backend Backend, compression logchunk.Compression) {
	server.Handle(ActionGetJob, func(ctx context.Context, raw []byte) (any, error) {
		var request getJobRequest
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, fmt.Errorf("decoding %s request: %w", ActionGetJob, err)
		}
		return backend.GetJob(ctx, request.JobID, request.WithTroves)
	})

	server.Handle(ActionGetJobLogs, func(ctx context.Context, raw []byte) (any, error) {
		var request getJobLogsRequest
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, fmt.Errorf("decoding %s request: %w", ActionGetJobLogs, err)
		}
		entries, err := backend.GetJobLogs(ctx, request.JobID, request.Mark)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []LogEntry{}
		}
		return entries, nil
	})

	server.Handle(ActionListTrovesByState, func(ctx context.Context, raw []byte) (any, error) {
		var request listTrovesByStateRequest
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, fmt.Errorf("decoding %s request: %w", ActionListTrovesByState, err)
		}
		troves, err := backend.ListTrovesByState(ctx, request.JobID, request.State)
		if err != nil {
			return nil, err
		}
		if troves == nil {
			troves = TrovesByState{}
		}
		return troves, nil
	})

	server.Handle(ActionGetTroveBuildLog, func(ctx context.Context, raw []byte) (any, error) {
		var request getTroveBuildLogRequest
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, fmt.Errorf("decoding %s request: %w", ActionGetTroveBuildLog, err)
		}
		chunk, err := backend.GetTroveBuildLog(ctx, request.JobID, request.Trove, request.Mark)
		if err != nil {
			return nil, err
		}
		packed, err := logchunk.Pack(chunk.Text, compression)
		if err != nil {
			return nil, err
		}
		return buildLogReply{More: chunk.More, Chunk: packed, Mark: chunk.Mark}, nil
	})

	server.Handle(ActionSubscribe, func(ctx context.Context, raw []byte) (any, error) {
		var subscription Subscription
		if err := codec.Unmarshal(raw, &subscription); err != nil {
			return nil, fmt.Errorf("decoding %s request: %w", ActionSubscribe, err)
		}
		if subscription.ID == "" || subscription.Endpoint == "" {
			return nil, fmt.Errorf("%s requires subscription and endpoint", ActionSubscribe)
		}
		return nil, backend.Subscribe(ctx, subscription)
	})

	server.Handle(ActionUnsubscribe, func(ctx context.Context, raw []byte) (any, error) {
		var request unsubscribeRequest
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, fmt.Errorf("decoding %s request: %w", ActionUnsubscribe, err)
		}
		return nil, backend.Unsubscribe(ctx, request.ID)
	})
}
