// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/trovewatch/cmd/trovewatch/cli"
	"github.com/bureau-foundation/trovewatch/lib/config"
	"github.com/bureau-foundation/trovewatch/lib/coordinator"
	"github.com/bureau-foundation/trovewatch/lib/monitor"
	"github.com/bureau-foundation/trovewatch/lib/rpc"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// sessionFlags are the flags shared by watch and wait. Each value
// only overrides the configuration when the flag was given.
type sessionFlags struct {
	flagSet *pflag.FlagSet

	configPath   string
	socketPath   string
	endpoint     string
	noServe      bool
	logLevel     string
	buildLogs    bool
	troveDetails bool
	stay         bool
	color        string
	pollInterval string
	display      bool
}

// newFlagSet registers the shared flags; display adds the ones that
// only matter when output is printed.
func (f *sessionFlags) newFlagSet(name string, display bool) *pflag.FlagSet {
	*f = sessionFlags{display: display}
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVar(&f.configPath, "config", "", "configuration file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&f.socketPath, "socket", "", "coordinator socket path")
	flagSet.StringVar(&f.endpoint, "endpoint", "", "event endpoint address (unix:// or http://); resolved automatically when empty")
	flagSet.BoolVar(&f.noServe, "no-serve", false, "dial the event endpoint instead of listening on it")
	flagSet.StringVar(&f.logLevel, "log-level", "", "diagnostic log level: debug, info, warn, or error")
	flagSet.StringVar(&f.pollInterval, "poll-interval", "", "minimum time between build log polls")
	if display {
		flagSet.BoolVar(&f.buildLogs, "build-logs", false, "tail the build log of each trove while it builds")
		flagSet.BoolVar(&f.troveDetails, "trove-details", false, "show trove log events")
		flagSet.BoolVar(&f.stay, "stay", false, "keep watching after the job finishes")
		flagSet.StringVar(&f.color, "color", "", "colour state names: auto, always, or never")
	}
	f.flagSet = flagSet
	return flagSet
}

// loadConfig loads the configuration and applies the given flags.
func (f *sessionFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Open(f.configPath)
	if err != nil {
		return nil, cli.Validation("loading configuration: %w", err)
	}

	changed := f.flagSet.Changed
	if changed("socket") {
		cfg.Coordinator.SocketPath = f.socketPath
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("poll-interval") {
		cfg.Monitor.PollInterval = f.pollInterval
	}
	if f.display {
		if changed("build-logs") {
			cfg.Monitor.ShowBuildLogs = f.buildLogs
		}
		if changed("trove-details") {
			cfg.Monitor.ShowTroveDetails = f.troveDetails
		}
		if changed("stay") {
			cfg.Monitor.StayAttached = f.stay
		}
		if changed("color") {
			cfg.Monitor.Color = f.color
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// session is everything a watch or wait run needs.
type session struct {
	jobID   trove.JobID
	client  coordinator.Client
	options monitor.SessionOptions
	logger  *slog.Logger
	socket  string
}

func (f *sessionFlags) openSession(env *environment, command string, args []string) (*session, error) {
	if len(args) != 1 {
		return nil, cli.Validation("expected exactly one job id, got %d arguments", len(args)).
			WithHint(fmt.Sprintf("Usage: trovewatch %s <job-id> [flags]", command))
	}
	jobID, err := trove.ParseJobID(args[0])
	if err != nil {
		return nil, cli.Validation("%w", err)
	}

	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	// Validate already checked both.
	level, _ := cfg.LogLevel()
	pollInterval, _ := cfg.PollInterval()
	color, _ := monitor.ParseColorMode(cfg.Monitor.Color)

	logger := env.newLogger(level).With("command", command, "job", jobID)
	client, err := env.connect(cfg.Coordinator.SocketPath, logger)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}

	return &session{
		jobID:  jobID,
		client: client,
		logger: logger,
		socket: cfg.Coordinator.SocketPath,
		options: monitor.SessionOptions{
			Options: monitor.Options{
				Out:           env.stdout,
				ShowBuildLogs: cfg.Monitor.ShowBuildLogs,
				StayAttached:  cfg.Monitor.StayAttached,
				Color:         color,
				PollInterval:  pollInterval,
				Logger:        logger,
			},
			Endpoint:         f.endpoint,
			NoServe:          f.noServe,
			ShowTroveDetails: cfg.Monitor.ShowTroveDetails,
			TempDir:          cfg.Monitor.EndpointDir,
		},
	}, nil
}

// signalContext is cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// sessionError maps a session failure to what the command returns.
func (s *session) sessionError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		// Interrupted by the user; 128+SIGINT like a shell.
		return &cli.ExitError{Code: 130}
	}
	if diagnosis := cli.DiagnoseSocketError(err, s.socket); diagnosis != nil {
		diagnosis.Err = fmt.Errorf("%w: %w", diagnosis.Err, err)
		return diagnosis
	}
	var serviceErr *rpc.ServiceError
	if errors.As(err, &serviceErr) {
		return cli.NotFound("%w", err).
			WithHint("The coordinator rejected the request. Check the job id.")
	}
	return cli.Transient("%w", err)
}
