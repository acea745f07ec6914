// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command trovewatch follows build jobs on a coordinator.
package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/trovewatch/cmd/trovewatch/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that already printed their outcome (wait on a
		// failed job) return an error carrying only the exit code.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}
