// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"github.com/bureau-foundation/trovewatch/lib/logchunk"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// Query action names.
const (
	ActionGetJob            = "get-job"
	ActionGetJobLogs        = "get-job-logs"
	ActionListTrovesByState = "list-troves-by-state"
	ActionGetTroveBuildLog  = "get-trove-build-log"
	ActionSubscribe         = "subscribe"
	ActionUnsubscribe       = "unsubscribe"
)

type getJobRequest struct {
	JobID      trove.JobID `cbor:"job_id"`
	WithTroves bool        `cbor:"with_troves"`
}

type getJobLogsRequest struct {
	JobID trove.JobID `cbor:"job_id"`
	Mark  int         `cbor:"mark"`
}

type listTrovesByStateRequest struct {
	JobID trove.JobID      `cbor:"job_id"`
	State trove.TroveState `cbor:"state"`
}

type getTroveBuildLogRequest struct {
	JobID trove.JobID `cbor:"job_id"`
	Trove trove.Tuple `cbor:"trove"`
	Mark  int64       `cbor:"mark"`
}

// buildLogReply is the wire form of BuildLogChunk; the text travels
// compressed.
type buildLogReply struct {
	More  bool           `cbor:"more"`
	Chunk logchunk.Chunk `cbor:"chunk"`
	Mark  int64          `cbor:"mark"`
}

// Subscription asks the coordinator to push a job's events to a
// monitor's endpoint until unsubscribed or the job's stream closes.
type Subscription struct {
	ID               string      `cbor:"subscription"`
	JobID            trove.JobID `cbor:"job_id"`
	Endpoint         string      `cbor:"endpoint"`
	ShowTroveDetails bool        `cbor:"show_trove_details"`
}

type unsubscribeRequest struct {
	ID string `cbor:"subscription"`
}
