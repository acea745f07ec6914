// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/trovewatch/cmd/trovewatch/cli"
	"github.com/bureau-foundation/trovewatch/lib/monitor"
	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// Exit codes of "trovewatch wait".
const (
	waitExitFailed     = 1
	waitExitUnfinished = 2
)

func waitCommand(env *environment) *cli.Command {
	var flags sessionFlags
	return &cli.Command{
		Name:    "wait",
		Summary: "Block until a job finishes",
		Description: "Wait silently for a build job to finish, then print its final state.\n" +
			"Exits 0 when the job built, 1 when it failed, and 2 when the event stream\n" +
			"ended before the job finished.",
		Usage: "trovewatch wait <job-id> [flags]",
		Examples: []cli.Example{
			{Description: "Wait for job 42 in a script", Command: "trovewatch wait 42 && echo built"},
		},
		Flags: func() *pflag.FlagSet { return flags.newFlagSet("wait", false) },
		Run: func(args []string) error {
			session, err := flags.openSession(env, "wait", args)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			if err := monitor.WaitForJob(ctx, session.client, session.jobID, session.options); err != nil {
				return session.sessionError(err)
			}

			job, err := session.client.GetJob(ctx, session.jobID, false)
			if err != nil {
				return session.sessionError(err)
			}
			switch job.State {
			case trove.JobStateBuilt:
				fmt.Fprintf(env.stdout, "Job %d: %s\n", job.ID, job.State)
				return nil
			case trove.JobStateFailed:
				fmt.Fprintf(env.stdout, "Job %d: %s\n", job.ID, job.State)
				reason, err := job.FailureReason()
				switch {
				case err != nil:
					session.logger.Warn("failure reason unreadable", "error", err)
				case reason != nil:
					fmt.Fprintf(env.stdout, "  %s\n", reason.ShortError())
				}
				return &cli.ExitError{Code: waitExitFailed}
			default:
				fmt.Fprintf(env.stdout, "Job %d: %s (event stream ended before the job finished)\n", job.ID, job.State)
				return &cli.ExitError{Code: waitExitUnfinished}
			}
		},
	}
}
