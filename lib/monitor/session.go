// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/trovewatch/lib/coordinator"
	"github.com/bureau-foundation/trovewatch/lib/endpoint"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// SessionOptions configures MonitorJob and WaitForJob.
type SessionOptions struct {
	Options

	// Endpoint is the address events arrive on. Empty means one is
	// resolved from the client's URI; a resolved local socket is
	// removed when the session ends. A supplied endpoint is never
	// removed.
	Endpoint string

	// NoServe dials Endpoint instead of hosting it.
	NoServe bool

	// ShowTroveDetails asks for trove-level events beyond state
	// changes.
	ShowTroveDetails bool

	// TempDir holds resolved local sockets. Empty means os.TempDir.
	TempDir string

	// NewDisplay overrides the display MonitorJob builds. Nil means
	// NewJobLogDisplay.
	NewDisplay func(coordinator.Client, Options) Display
}

// MonitorJob prints the progress of jobID until it finishes, the
// event stream ends, or ctx is cancelled.
func MonitorJob(ctx context.Context, client coordinator.Client, jobID trove.JobID, options SessionOptions) error {
	newDisplay := options.NewDisplay
	if newDisplay == nil {
		newDisplay = func(client coordinator.Client, options Options) Display {
			return NewJobLogDisplay(client, options)
		}
	}
	return runSession(ctx, client, jobID, options, newDisplay(client, options.Options))
}

// WaitForJob blocks without printing until jobID finishes, the event
// stream ends, or ctx is cancelled. Callers read the outcome with
// Client.GetJob.
func WaitForJob(ctx context.Context, client coordinator.Client, jobID trove.JobID, options SessionOptions) error {
	return runSession(ctx, client, jobID, options, NewSilentDisplay(client, options.Options))
}

func runSession(ctx context.Context, client coordinator.Client, jobID trove.JobID, options SessionOptions, display Display) (err error) {
	options.Options = options.withDefaults()
	logger := options.Logger.With("job", jobID)

	defer func() {
		if closeErr := display.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	events := endpoint.Supplied(options.Endpoint)
	if options.Endpoint == "" {
		events, err = endpoint.Resolve(client.URI(), options.TempDir)
		if err != nil {
			return fmt.Errorf("resolving event endpoint: %w", err)
		}
	}
	logger.Debug("event endpoint resolved",
		"endpoint", events.Address,
		"cleanup_path", events.CleanupPath,
	)
	if events.Owned() {
		defer func() {
			if cleanupErr := events.Cleanup(); cleanupErr != nil {
				logger.Warn("removing event endpoint failed",
					"cleanup_path", events.CleanupPath,
					"error", cleanupErr,
				)
			}
		}()
	}

	if err := display.Prime(ctx, jobID); err != nil {
		return err
	}

	err = client.ListenToEvents(ctx, events.Address, jobID, display, coordinator.ListenOptions{
		ShowTroveDetails: options.ShowTroveDetails,
		Serve:            !options.NoServe,
		Clock:            options.Clock,
		PollInterval:     options.PollInterval,
		Logger:           options.Logger,
	})
	if err != nil {
		return fmt.Errorf("listening for events of job %s: %w", jobID, err)
	}
	logger.Debug("event stream ended", "finished", display.IsFinished())
	return nil
}
