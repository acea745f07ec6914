// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/bureau-foundation/trovewatch/lib/codec"
	"github.com/bureau-foundation/trovewatch/lib/endpoint"
	"github.com/bureau-foundation/trovewatch/lib/event"
	"github.com/bureau-foundation/trovewatch/lib/netutil"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// FrameType distinguishes the frames of an event stream.
type FrameType string

const (
	// FrameEvent carries one event.
	FrameEvent FrameType = "EVENT"

	// FrameStreamClosed ends the stream. Nothing follows it.
	FrameStreamClosed FrameType = "STREAM_CLOSED"
)

// Frame is one element of an event stream.
type Frame struct {
	Type  FrameType    `cbor:"type"`
	Event *event.Event `cbor:"event,omitempty"`
}

// Hello is the first frame a monitor sends when it dials an endpoint
// instead of serving one.
type Hello struct {
	JobID            trove.JobID `cbor:"job_id"`
	ShowTroveDetails bool        `cbor:"show_trove_details"`
}

// ErrStreamClosed is returned when publishing to, or delivering into,
// a stream that has already received its STREAM_CLOSED frame.
var ErrStreamClosed = errors.New("event stream closed")

// Source is an event stream as seen by the listen loop.
type Source interface {
	// Events delivers events in arrival order. It is closed when the
	// stream ends.
	Events() <-chan event.Event

	// Err reports why the stream ended: nil for a STREAM_CLOSED frame
	// or an orderly disconnect. Valid once Events is closed.
	Err() error
}

// eventBuffer is the capacity of a stream's event channel.
const eventBuffer = 64

// DialedStream reads an event stream from an endpoint hosted by
// someone else.
type DialedStream struct {
	conn   net.Conn
	events chan event.Event
	err    error

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Dial connects to the endpoint at address, sends hello, and starts
// reading frames.
func Dial(ctx context.Context, address string, hello Hello) (*DialedStream, error) {
	network, err := endpoint.Parse(address)
	if err != nil {
		return nil, err
	}
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network.Network, network.Address)
	if err != nil {
		return nil, fmt.Errorf("connecting to event endpoint %s: %w", address, err)
	}
	if err := codec.NewEncoder(conn).Encode(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending hello to %s: %w", address, err)
	}

	stream := &DialedStream{
		conn:   conn,
		events: make(chan event.Event, eventBuffer),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go stream.read()
	return stream, nil
}

// Events implements Source.
func (s *DialedStream) Events() <-chan event.Event { return s.events }

// Err implements Source.
func (s *DialedStream) Err() error { return s.err }

// Close disconnects and waits for the reader to stop.
func (s *DialedStream) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	err := s.conn.Close()
	<-s.done
	if netutil.IsExpectedCloseError(err) {
		return nil
	}
	return err
}

func (s *DialedStream) read() {
	defer close(s.done)
	defer close(s.events)

	decoder := codec.NewDecoder(s.conn)
	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if !netutil.IsExpectedCloseError(err) {
				s.err = fmt.Errorf("reading event stream: %w", err)
			}
			return
		}
		switch frame.Type {
		case FrameStreamClosed:
			return
		case FrameEvent:
			if frame.Event == nil {
				s.err = fmt.Errorf("reading event stream: EVENT frame without an event")
				return
			}
			select {
			case s.events <- *frame.Event:
			case <-s.stop:
				return
			}
		default:
			// Newer frame types are skipped.
		}
	}
}
