// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds small network I/O helpers shared by the
// event transport.
//
// Body helpers (LimitBody, ErrorBody) bound reads of HTTP bodies at
// MaxBodySize so a misbehaving peer cannot exhaust memory. Connection
// helpers (IsExpectedCloseError) separate normal stream teardown from
// real failures.
package netutil

import (
	"io"
)

// MaxBodySize bounds a single event POST body or error response:
// 16 MB. Event frames are a few hundred bytes.
const MaxBodySize int64 = 16 << 20

// LimitBody wraps body so reads stop at MaxBodySize.
func LimitBody(body io.Reader) io.Reader {
	return io.LimitReader(body, MaxBodySize)
}

// ErrorBody reads an HTTP error response body for use in an error
// message. Read errors are ignored; a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxBodySize))
	return string(data)
}
