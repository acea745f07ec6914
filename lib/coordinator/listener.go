// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/bureau-foundation/trovewatch/lib/codec"
	"github.com/bureau-foundation/trovewatch/lib/endpoint"
	"github.com/bureau-foundation/trovewatch/lib/event"
	"github.com/bureau-foundation/trovewatch/lib/netutil"
)

// EventsPath is the route an http endpoint accepts frames on.
const EventsPath = "/events"

// CBORContentType labels frame bodies.
const CBORContentType = "application/cbor"

// errListenerClosed is returned by deliver once Close has been
// called.
var errListenerClosed = errors.New("event listener closed")

// Listener hosts an event endpoint. Frames from any number of
// connections (unix) or requests (http) merge into one ordered event
// channel. The first STREAM_CLOSED frame ends the stream.
type Listener struct {
	address string
	logger  *slog.Logger

	events chan event.Event

	// mu serializes delivery so the STREAM_CLOSED frame cannot close
	// events while another delivery is sending on it.
	mu    sync.Mutex
	ended bool

	stop     chan struct{}
	stopOnce sync.Once

	netListener net.Listener
	httpServer  *http.Server
	handlers    sync.WaitGroup
}

// NewListener starts hosting the endpoint at address. A unix endpoint
// replaces whatever file is at the socket path (normally the empty
// file the endpoint resolver reserved). An http endpoint without a
// port binds a free one; Address reports the one actually bound.
func NewListener(address string, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	network, err := endpoint.Parse(address)
	if err != nil {
		return nil, err
	}

	if network.Network == "unix" {
		if err := os.Remove(network.Address); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("removing stale socket %s: %w", network.Address, err)
		}
	}
	netListener, err := net.Listen(network.Network, network.Address)
	if err != nil {
		return nil, fmt.Errorf("listening for events on %s: %w", address, err)
	}
	if unixListener, ok := netListener.(*net.UnixListener); ok {
		unixListener.SetUnlinkOnClose(false)
	}

	listener := &Listener{
		address:     address,
		logger:      logger,
		events:      make(chan event.Event, eventBuffer),
		stop:        make(chan struct{}),
		netListener: netListener,
	}

	if network.Network == "unix" {
		listener.handlers.Add(1)
		go listener.acceptStreams()
	} else {
		host, _, _ := net.SplitHostPort(network.Address)
		port := netListener.Addr().(*net.TCPAddr).Port
		listener.address = endpoint.SchemeHTTP + net.JoinHostPort(host, strconv.Itoa(port))
		listener.httpServer = &http.Server{Handler: listener.router()}
		listener.handlers.Add(1)
		go func() {
			defer listener.handlers.Done()
			if err := listener.httpServer.Serve(netListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("event endpoint stopped", "address", listener.address, "error", err)
			}
		}()
	}

	logger.Debug("listening for events", "address", listener.address)
	return listener, nil
}

// Address is the endpoint address to advertise to the coordinator.
func (l *Listener) Address() string { return l.address }

// Events implements Source.
func (l *Listener) Events() <-chan event.Event { return l.events }

// Err implements Source. A hosted stream only ends by STREAM_CLOSED.
func (l *Listener) Err() error { return nil }

// Close stops accepting frames and waits for in-flight handlers. It
// does not remove a unix socket file; the endpoint's owner does that.
func (l *Listener) Close() error {
	l.stopOnce.Do(func() { close(l.stop) })
	var err error
	if l.httpServer != nil {
		err = l.httpServer.Close()
	} else {
		err = l.netListener.Close()
	}
	l.handlers.Wait()
	if netutil.IsExpectedCloseError(err) {
		return nil
	}
	return err
}

// deliver feeds one frame into the stream.
func (l *Listener) deliver(frame Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ended {
		return ErrStreamClosed
	}
	switch frame.Type {
	case FrameStreamClosed:
		l.ended = true
		close(l.events)
		return nil
	case FrameEvent:
		if frame.Event == nil {
			return fmt.Errorf("EVENT frame without an event")
		}
		select {
		case l.events <- *frame.Event:
			return nil
		case <-l.stop:
			return errListenerClosed
		}
	default:
		l.logger.Debug("skipping unknown frame type", "type", frame.Type)
		return nil
	}
}

// deliverAll decodes frames from r until it is exhausted.
func (l *Listener) deliverAll(r io.Reader) error {
	decoder := codec.NewDecoder(r)
	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decoding frame: %w", err)
		}
		if err := l.deliver(frame); err != nil {
			return err
		}
	}
}

func (l *Listener) acceptStreams() {
	defer l.handlers.Done()
	for {
		conn, err := l.netListener.Accept()
		if err != nil {
			select {
			case <-l.stop:
			default:
				if !errors.Is(err, net.ErrClosed) {
					l.logger.Error("accepting event connection failed", "error", err)
				}
			}
			return
		}
		l.handlers.Add(1)
		go func() {
			defer l.handlers.Done()
			l.handleStream(conn)
		}()
	}
}

func (l *Listener) handleStream(conn net.Conn) {
	defer conn.Close()

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-l.stop:
			conn.Close()
		case <-finished:
		}
	}()

	err := l.deliverAll(conn)
	switch {
	case err == nil, errors.Is(err, ErrStreamClosed), errors.Is(err, errListenerClosed):
	case netutil.IsExpectedCloseError(err):
	default:
		l.logger.Warn("dropping event connection", "error", err)
	}
}

// ginReleaseMode keeps gin's debug banner off the monitor's stdout.
var ginReleaseMode sync.Once

func (l *Listener) router() *gin.Engine {
	ginReleaseMode.Do(func() { gin.SetMode(gin.ReleaseMode) })
	router := gin.New()
	router.Use(gin.Recovery())
	router.POST(EventsPath, l.handlePost)
	return router
}

// handlePost accepts one or more frames as a CBOR sequence.
func (l *Listener) handlePost(c *gin.Context) {
	err := l.deliverAll(netutil.LimitBody(c.Request.Body))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, ErrStreamClosed):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, errListenerClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
