// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/bureau-foundation/trovewatch/lib/clock"
	"github.com/bureau-foundation/trovewatch/lib/coordinator"
)

// ColorMode selects whether state names are coloured.
type ColorMode string

const (
	// ColorAuto colours output written to a terminal.
	ColorAuto ColorMode = "auto"

	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode parses a --color value. The empty string is auto.
func ParseColorMode(value string) (ColorMode, error) {
	switch ColorMode(value) {
	case "", ColorAuto:
		return ColorAuto, nil
	case ColorAlways, ColorNever:
		return ColorMode(value), nil
	default:
		return "", fmt.Errorf("invalid color mode %q (want auto, always, or never)", value)
	}
}

// Options configures a display.
type Options struct {
	// Out receives status lines. Nil means os.Stdout.
	Out io.Writer

	// ShowBuildLogs tails the build log of every trove that starts
	// building or resolving dependencies.
	ShowBuildLogs bool

	// StayAttached keeps the session running after the job finishes,
	// until the coordinator closes the stream. The default is to
	// detach as soon as a finished state is seen.
	StayAttached bool

	// Color selects state-name colouring. Empty means ColorAuto.
	Color ColorMode

	// Clock stamps status lines and throttles the log poller. Nil
	// means the real clock.
	Clock clock.Clock

	// PollInterval is the minimum time between two build-log polls
	// and the listen loop's idle timeout. Zero means
	// coordinator.DefaultPollInterval.
	PollInterval time.Duration

	// Logger receives diagnostics such as transient fetch failures.
	// Nil discards them.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Color == "" {
		o.Color = ColorAuto
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.PollInterval <= 0 {
		o.PollInterval = coordinator.DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}
