// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/trovewatch/cmd/trovewatch/cli"
	"github.com/bureau-foundation/trovewatch/lib/monitor"
)

func watchCommand(env *environment) *cli.Command {
	var flags sessionFlags
	return &cli.Command{
		Name:    "watch",
		Summary: "Print a job's progress until it finishes",
		Description: "Print a line for every job and trove state change of a build job, replaying\n" +
			"the job log first. With --build-logs, the build log of each trove is tailed\n" +
			"while it builds. Exits when the job is built or failed, unless --stay is given.",
		Usage: "trovewatch watch <job-id> [flags]",
		Examples: []cli.Example{
			{Description: "Follow job 42 with build logs", Command: "trovewatch watch 42 --build-logs"},
			{Description: "Keep following after the job finishes", Command: "trovewatch watch 42 --stay"},
		},
		Flags: func() *pflag.FlagSet { return flags.newFlagSet("watch", true) },
		Run: func(args []string) error {
			session, err := flags.openSession(env, "watch", args)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			return session.sessionError(monitor.MonitorJob(ctx, session.client, session.jobID, session.options))
		},
	}
}
