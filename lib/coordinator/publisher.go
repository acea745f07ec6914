// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/bureau-foundation/trovewatch/lib/codec"
	"github.com/bureau-foundation/trovewatch/lib/endpoint"
	"github.com/bureau-foundation/trovewatch/lib/event"
	"github.com/bureau-foundation/trovewatch/lib/netutil"
)

// Publisher pushes events into one monitor's stream. It is safe for
// concurrent use; frames are written in call order.
type Publisher struct {
	mu     sync.Mutex
	closed bool
	send   func(ctx context.Context, frame Frame) error
	close  func() error
}

// NewPublisher writes frames onto an established connection. The
// coordinator uses it for monitors that dial in, after reading their
// Hello with AcceptHello.
func NewPublisher(conn io.WriteCloser) *Publisher {
	encoder := codec.NewEncoder(conn)
	return &Publisher{
		send: func(_ context.Context, frame Frame) error {
			return encoder.Encode(frame)
		},
		close: conn.Close,
	}
}

// DialPublisher connects to a monitor's hosted endpoint. A unix
// endpoint gets one connection carrying every frame; an http endpoint
// gets one POST per frame.
func DialPublisher(ctx context.Context, address string) (*Publisher, error) {
	network, err := endpoint.Parse(address)
	if err != nil {
		return nil, err
	}
	if network.Network == "unix" {
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "unix", network.Address)
		if err != nil {
			return nil, fmt.Errorf("connecting to monitor at %s: %w", address, err)
		}
		return NewPublisher(conn), nil
	}

	url := strings.TrimSuffix(address, "/") + EventsPath
	client := &http.Client{}
	return &Publisher{
		send: func(ctx context.Context, frame Frame) error {
			return postFrame(ctx, client, url, frame)
		},
		close: func() error {
			client.CloseIdleConnections()
			return nil
		},
	}, nil
}

// AcceptHello reads the Hello a dialing monitor sends first.
func AcceptHello(r io.Reader) (Hello, error) {
	var hello Hello
	if err := codec.NewDecoder(r).Decode(&hello); err != nil {
		return Hello{}, fmt.Errorf("reading monitor hello: %w", err)
	}
	return hello, nil
}

// Publish sends one event. It returns ErrStreamClosed after
// CloseStream.
func (p *Publisher) Publish(ctx context.Context, published event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrStreamClosed
	}
	return p.send(ctx, Frame{Type: FrameEvent, Event: &published})
}

// CloseStream sends STREAM_CLOSED and releases the connection.
func (p *Publisher) CloseStream(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrStreamClosed
	}
	p.closed = true
	sendErr := p.send(ctx, Frame{Type: FrameStreamClosed})
	closeErr := p.close()
	if sendErr != nil {
		return sendErr
	}
	return closeErr
}

// Close releases the connection without ending the stream.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.close()
}

func postFrame(ctx context.Context, client *http.Client, url string, frame Frame) error {
	body, err := codec.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", frame.Type, err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", CBORContentType)

	response, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("posting %s frame to %s: %w", frame.Type, url, err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusGone:
		return ErrStreamClosed
	case response.StatusCode >= 300:
		return fmt.Errorf("posting %s frame to %s: %s: %s",
			frame.Type, url, response.Status, netutil.ErrorBody(response.Body))
	}
	return nil
}
