// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package endpoint decides where a monitor listens for coordinator
// events.
//
// When the coordinator is reached over a local socket, the monitor
// listens on a fresh local socket of its own, named after a temporary
// file it creates and must later remove. When the coordinator is
// reached over the network, the monitor listens on this host's name
// and nothing needs cleaning up.
package endpoint

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
)

const (
	// SchemeUnix prefixes local-socket addresses.
	SchemeUnix = "unix://"

	// SchemeHTTP prefixes network addresses.
	SchemeHTTP = "http://"
)

// ErrUnsupportedScheme is returned by Parse for an address that is
// neither a unix:// nor an http:// address.
var ErrUnsupportedScheme = errors.New("unsupported endpoint scheme")

// Endpoint is an address the monitor can listen on.
type Endpoint struct {
	// Address is a unix:// or http:// address.
	Address string

	// CleanupPath is the temporary file created for a unix endpoint,
	// or "" when Resolve created nothing.
	CleanupPath string
}

// Resolve picks the endpoint for a coordinator reached at clientURI.
// An empty clientURI or a unix:// one yields a temporary local socket
// path under tempDir (the system default when tempDir is ""); the
// file is created and closed immediately so the name is reserved.
// Any other clientURI yields http://<hostname>.
func Resolve(clientURI, tempDir string) (Endpoint, error) {
	if clientURI == "" || strings.HasPrefix(clientURI, SchemeUnix) {
		file, err := os.CreateTemp(tempDir, "trovewatch-*.sock")
		if err != nil {
			return Endpoint{}, fmt.Errorf("reserving local event socket: %w", err)
		}
		path := file.Name()
		if err := file.Close(); err != nil {
			os.Remove(path)
			return Endpoint{}, fmt.Errorf("closing reserved socket path %s: %w", path, err)
		}
		return Endpoint{Address: SchemeUnix + path, CleanupPath: path}, nil
	}

	hostname, err := os.Hostname()
	if err != nil {
		return Endpoint{}, fmt.Errorf("determining hostname for event endpoint: %w", err)
	}
	return Endpoint{Address: SchemeHTTP + hostname}, nil
}

// Supplied wraps a caller-provided address. Cleanup never removes
// anything for it.
func Supplied(address string) Endpoint {
	return Endpoint{Address: address}
}

// Owned reports whether Resolve created a file for this endpoint.
func (e Endpoint) Owned() bool { return e.CleanupPath != "" }

// Cleanup removes the temporary file Resolve created. It is a no-op
// for endpoints that own nothing, and a file that is already gone is
// not an error.
func (e Endpoint) Cleanup() error {
	if e.CleanupPath == "" {
		return nil
	}
	if err := os.Remove(e.CleanupPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing event socket %s: %w", e.CleanupPath, err)
	}
	return nil
}

// Network is a parsed endpoint address in the form net.Listen and
// net.Dial accept.
type Network struct {
	// Network is "unix" or "tcp".
	Network string

	// Address is a socket path for unix, host:port for tcp.
	Address string
}

// Parse splits address into its network and dialable address. An
// http address with no port gets port 0, which asks the kernel for a
// free port when listening.
func Parse(address string) (Network, error) {
	switch {
	case strings.HasPrefix(address, SchemeUnix):
		path := strings.TrimPrefix(address, SchemeUnix)
		if path == "" {
			return Network{}, fmt.Errorf("endpoint %q: empty socket path", address)
		}
		return Network{Network: "unix", Address: path}, nil

	case strings.HasPrefix(address, SchemeHTTP):
		parsed, err := url.Parse(address)
		if err != nil {
			return Network{}, fmt.Errorf("endpoint %q: %w", address, err)
		}
		host := parsed.Hostname()
		if host == "" {
			return Network{}, fmt.Errorf("endpoint %q: empty host", address)
		}
		port := parsed.Port()
		if port == "" {
			port = "0"
		}
		return Network{Network: "tcp", Address: net.JoinHostPort(host, port)}, nil

	default:
		return Network{}, fmt.Errorf("endpoint %q: %w", address, ErrUnsupportedScheme)
	}
}
