// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/trovewatch/cmd/trovewatch/cli"
	"github.com/bureau-foundation/trovewatch/lib/coordinator"
)

// environment is what commands touch outside the process.
type environment struct {
	stdout io.Writer
	stdin  io.Reader
	stderr io.Writer

	// connect returns a client for the coordinator at socketPath.
	connect func(socketPath string, logger *slog.Logger) (coordinator.Client, error)

	// newLogger builds the diagnostic logger.
	newLogger func(level slog.Level) *slog.Logger
}

func defaultEnvironment() *environment {
	return &environment{
		stdout: os.Stdout,
		stdin:  os.Stdin,
		stderr: os.Stderr,
		connect: func(socketPath string, logger *slog.Logger) (coordinator.Client, error) {
			return coordinator.NewSocketClient(socketPath, logger)
		},
		newLogger: cli.NewCommandLogger,
	}
}

// Root returns the trovewatch command tree.
func Root() *cli.Command {
	return newRoot(defaultEnvironment())
}

func newRoot(env *environment) *cli.Command {
	return &cli.Command{
		Name:        "trovewatch",
		Summary:     "Follow build jobs on an rMake-style coordinator",
		Description: "trovewatch follows build jobs: it prints job and trove state changes as they\nhappen, tails build logs, and waits for jobs to finish.",
		Output:      env.stderr,
		Subcommands: []*cli.Command{
			watchCommand(env),
			waitCommand(env),
			failureCommand(env),
			replayCommand(env),
			versionCommand(env),
		},
	}
}
