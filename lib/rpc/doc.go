// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpc implements the coordinator's request/response protocol:
// one CBOR request and one CBOR response per unix socket connection.
//
// A request is a CBOR map with an "action" key naming the operation
// plus whatever fields that action takes. The response is always a
// [Response] envelope: {ok: true, data: ...} on success or
// {ok: false, error: "..."} on failure. CBOR values are
// self-delimiting, so no framing is needed beyond the connection
// itself.
//
// [Server] hosts the protocol and [Client] calls it. The coordinator
// package builds its query operations (get-job, get-job-logs and so
// on) on top of Client.
package rpc
