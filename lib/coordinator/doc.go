// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package coordinator talks to the build coordinator.
//
// Two channels connect a monitor to the coordinator. Queries (job
// snapshots, historical job logs, troves by state, build-log chunks)
// go over the request/response protocol in lib/rpc, wrapped by
// [SocketClient]. Live notifications arrive as an event stream: a
// sequence of CBOR [Frame] values, each carrying one [event.Event],
// terminated by a STREAM_CLOSED frame.
//
// The stream has two shapes. When the monitor serves (the usual
// case), it hosts a [Listener] on its endpoint and asks the
// coordinator to push events there; a unix endpoint accepts frame
// streams on each connection, an http endpoint accepts frames as
// POST /events bodies. When the monitor does not serve, it dials an
// endpoint someone else hosts, sends a [Hello], and reads frames from
// that connection.
//
// [Listen] consumes either shape. It waits for the next event with a
// timeout equal to the poll interval, dispatches what arrives, and
// gives the subscriber a chance to poll after every wake-up. It is
// the only goroutine that touches the subscriber.
//
// The coordinator side of the protocol lives here too: [RegisterActions]
// serves queries from a [Backend], and [Publisher] pushes events to a
// monitor's endpoint.
package coordinator
