// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides trovewatch's shared CBOR configuration.
//
// Every binary exchange in trovewatch is CBOR: request/response
// envelopes on the coordinator socket, the event stream pushed to a
// monitoring endpoint, and frozen failure reasons carried inside
// events and job snapshots. Operator-facing output is plain text and
// never passes through this package.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same event always produces the same bytes. The decoder ignores
// unknown struct fields, which lets a newer coordinator add fields to
// job snapshots without breaking an older monitor.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
package codec
