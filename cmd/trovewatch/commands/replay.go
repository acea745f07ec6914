// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/trovewatch/cmd/trovewatch/cli"
	"github.com/bureau-foundation/trovewatch/lib/logchunk"
	"github.com/bureau-foundation/trovewatch/lib/replay"
)

func replayCommand(env *environment) *cli.Command {
	var (
		socketPath  string
		hostAddress string
		interval    time.Duration
		compression string
		logLevel    string
	)
	return &cli.Command{
		Name:    "replay",
		Summary: "Serve a recorded job as a stand-in coordinator",
		Description: "Load a YAML job recording and answer coordinator queries for it on a unix\n" +
			"socket. Every monitor that subscribes (or dials --endpoint) hears the\n" +
			"recorded events, one per --interval. Runs until interrupted.",
		Usage: "trovewatch replay <recording.yaml> --socket <path> [flags]",
		Examples: []cli.Example{
			{
				Description: "Replay a job and watch it from another terminal",
				Command:     "trovewatch replay job42.yaml --socket /tmp/replay.sock",
			},
			{
				Description: "Also host an endpoint for monitors that do not serve",
				Command:     "trovewatch replay job42.yaml --socket /tmp/replay.sock --endpoint unix:///tmp/replay-events.sock",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("replay", pflag.ContinueOnError)
			flagSet.StringVar(&socketPath, "socket", "", "unix socket to serve coordinator queries on (required)")
			flagSet.StringVar(&hostAddress, "endpoint", "", "also host an event endpoint here for monitors started with --no-serve")
			flagSet.DurationVar(&interval, "interval", 250*time.Millisecond, "pause before each recorded event")
			flagSet.StringVar(&compression, "compression", logchunk.Zstd.String(), "build log compression: none, lz4, or zstd")
			flagSet.StringVar(&logLevel, "log-level", "info", "diagnostic log level: debug, info, warn, or error")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("expected one recording file, got %d arguments", len(args))
			}
			if socketPath == "" {
				return cli.Validation("--socket is required").
					WithHint("Pick a path the monitors can reach, then point them at it with --socket.")
			}
			if interval < 0 {
				return cli.Validation("--interval must not be negative, got %s", interval)
			}
			packing, err := logchunk.ParseCompression(compression)
			if err != nil {
				return cli.Validation("--compression: %w", err)
			}
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return cli.Validation("--log-level: %w", err)
			}
			script, err := replay.LoadFile(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}

			replayer := replay.New(script, replay.Options{
				Interval:    interval,
				Compression: packing,
				Logger:      env.newLogger(level),
			})
			fmt.Fprintf(env.stdout, "Replaying job %d on %s\n", script.JobID(), socketPath)

			ctx, stop := signalContext()
			defer stop()
			if err := replayer.Run(ctx, socketPath, hostAddress); err != nil {
				return cli.Transient("serving recording: %w", err)
			}
			return nil
		},
	}
}
