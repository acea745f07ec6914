// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"
)

// DiagnoseSocketError inspects an error from talking to the
// coordinator socket and returns a categorized ToolError with an
// actionable hint. If err is not a recognizable socket failure it
// returns nil and the caller should use its own wrapping.
func DiagnoseSocketError(err error, socketPath string) *ToolError {
	switch {
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return Forbidden("permission denied accessing %s", socketPath).
			WithHint("Check the socket's ownership and permissions: ls -la " + socketPath + "\n" +
				"Your user needs read and write access to talk to the coordinator.")

	case errors.Is(err, fs.ErrNotExist), errors.Is(err, unix.ENOENT):
		return Transient("no coordinator socket at %s", socketPath).
			WithHint("Is the coordinator running? Pass --socket or set coordinator.socket_path\n" +
				"in the file named by TROVEWATCH_CONFIG if it listens elsewhere.")

	case errors.Is(err, unix.ECONNREFUSED):
		return Transient("coordinator at %s refused the connection", socketPath).
			WithHint("The socket exists but nothing is accepting on it. The coordinator\n" +
				"may have exited without removing it; restart the coordinator.")
	}
	return nil
}
