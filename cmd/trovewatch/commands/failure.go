// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/trovewatch/cmd/trovewatch/cli"
	"github.com/bureau-foundation/trovewatch/lib/codec"
	"github.com/bureau-foundation/trovewatch/lib/failure"
)

func failureCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "failure",
		Summary: "Inspect failure reasons",
		Subcommands: []*cli.Command{
			failureShowCommand(env),
		},
	}
}

func failureShowCommand(env *environment) *cli.Command {
	var traceback bool
	return &cli.Command{
		Name:    "show",
		Summary: "Decode a frozen failure reason",
		Description: "Read a CBOR-encoded frozen failure reason from a file (or stdin) and print\n" +
			"its summary and detailed forms. Undecodable input is shown in CBOR\n" +
			"diagnostic notation.",
		Usage: "trovewatch failure show [file] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			flagSet.BoolVar(&traceback, "traceback", false, "also print the captured traceback")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return cli.Validation("expected at most one file, got %d arguments", len(args))
			}
			data, err := readInput(env, args)
			if err != nil {
				return err
			}

			var frozen failure.Frozen
			if err := codec.Unmarshal(data, &frozen); err != nil {
				return cli.Validation("input is not a frozen failure: %w", err).
					WithHint(diagnosis(data))
			}
			reason, err := failure.Thaw(frozen)
			if err != nil {
				return cli.Validation("%w", err).WithHint(diagnosis(data))
			}
			if reason == nil {
				fmt.Fprintln(env.stdout, "No failure")
				return nil
			}

			fmt.Fprintf(env.stdout, "Tag:     %d\n", reason.Tag())
			fmt.Fprintf(env.stdout, "Summary: %s\n", reason.ShortError())
			fmt.Fprintf(env.stdout, "Detail:\n%s\n", reason.Error())
			if traceback && reason.HasTraceback() {
				fmt.Fprintf(env.stdout, "Traceback:\n%s\n", reason.Traceback())
			}
			return nil
		},
	}
}

func readInput(env *environment, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(env.stdin)
		if err != nil {
			return nil, cli.Internal("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, cli.NotFound("%w", err)
	}
	return data, nil
}

func diagnosis(data []byte) string {
	notation, err := codec.Diagnose(data)
	if err != nil {
		return fmt.Sprintf("The input is not valid CBOR (%v).", err)
	}
	return "Input in CBOR diagnostic notation:\n  " + notation
}
