package main

import "github.com/spf13/cobra"

// newRootCommand assembles the orc CLI, mirroring the teacher's one
// root-command-plus-subcommands layout.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orc",
		Short: "Parallel AI-worker orchestration engine",
		Long: `orc drives a task-graph document through a level-synchronous scheduler:
each level's tasks are dispatched to a bounded pool of coding-agent workers,
a level's branches are merged and gated before the next level starts, and a
health monitor restarts or escalates workers that stop heartbeating.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newRetryCommand())
	cmd.AddCommand(newMergeCommand())
	cmd.AddCommand(newCleanupCommand())
	cmd.AddCommand(newArchiveCommand())

	return cmd
}
