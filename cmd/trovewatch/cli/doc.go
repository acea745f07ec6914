// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for trovewatch.
//
// The central type is [Command], a named subcommand with optional
// nested [Command.Subcommands], a [pflag.FlagSet] factory, and a Run
// function. The tree is assembled in cmd/trovewatch/commands and
// dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and help output with examples. Unknown commands
// and flags get a "did you mean" suggestion by edit distance.
//
// Commands report failures as [ToolError] (a categorized error with an
// optional hint) or [ExitError] (a bare exit status for outcomes the
// command already printed). [DiagnoseSocketError] turns coordinator
// connection failures into ToolErrors with a hint.
package cli
