// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// palette renders state names.
type palette struct {
	success lipgloss.Style
	failure lipgloss.Style
	active  lipgloss.Style
	plain   lipgloss.Style
}

func newPalette(out io.Writer, mode ColorMode) palette {
	profile := termenv.Ascii
	switch mode {
	case ColorAlways:
		profile = termenv.ANSI256
	case ColorAuto:
		if file, ok := out.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
			profile = termenv.ANSI256
		}
	}

	// SetColorProfile pins the profile; without it the renderer
	// re-detects from the environment.
	renderer := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)

	return palette{
		success: renderer.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		failure: renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		active:  renderer.NewStyle().Foreground(lipgloss.Color("3")),
		plain:   renderer.NewStyle(),
	}
}

func (p palette) jobState(state trove.JobState) string {
	switch state {
	case trove.JobStateBuilt, trove.JobStateCommitted:
		return p.success.Render(state.String())
	case trove.JobStateFailed:
		return p.failure.Render(state.String())
	case trove.JobStateBuilding, trove.JobStateCommitting:
		return p.active.Render(state.String())
	default:
		return p.plain.Render(state.String())
	}
}

func (p palette) troveState(state trove.TroveState) string {
	switch state {
	case trove.TroveStateBuilt:
		return p.success.Render(state.String())
	case trove.TroveStateFailed, trove.TroveStateUnbuildable:
		return p.failure.Render(state.String())
	case trove.TroveStateBuilding, trove.TroveStateResolving:
		return p.active.Render(state.String())
	default:
		return p.plain.Render(state.String())
	}
}
