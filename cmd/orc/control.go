package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRetryCommand implements the abstract retry(task) control operation of
// spec.md §6: reset a FAILED task back to PENDING for the next run.
func newRetryCommand() *cobra.Command {
	flags := &commonFlags{}

	cmd := &cobra.Command{
		Use:   "retry <task-id>",
		Short: "Reset a FAILED task back to PENDING",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := openScheduler(flags)
			if err != nil {
				return err
			}
			if err := sched.Retry(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task %q reset to PENDING\n", args[0])
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// newMergeCommand implements the abstract merge(level, {force}) control
// operation of spec.md §6: manually invoke the Merge Coordinator for a
// level whose worker branches are already prepared.
func newMergeCommand() *cobra.Command {
	flags := &commonFlags{}
	var level int
	var force bool

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Manually merge one level's worker branches",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := openScheduler(flags)
			if err != nil {
				return err
			}
			result, err := sched.Merge(cmd.Context(), level, force)
			if err != nil {
				return fmt.Errorf("merge: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "level %d merged -> %s\n", level, result.MergeCommit)
			for _, w := range result.WiringWarnings {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s: %s\n", w.File, w.Message)
			}
			for _, branch := range result.NeedsRebase {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: branch %q needs a manual rebase onto the base branch\n", branch)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&level, "level", 0, "level index to merge")
	cmd.Flags().BoolVar(&force, "force", false, "merge past BLOCKED tasks and conflicts")
	_ = cmd.MarkFlagRequired("level")
	return cmd
}

// newCleanupCommand implements the abstract cleanup() control operation of
// spec.md §6: remove prepared worker worktrees and, unless --keep-branches
// is set, the worker branches behind them.
func newCleanupCommand() *cobra.Command {
	flags := &commonFlags{}
	var keepBranches bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove prepared worker worktrees and branches",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := openScheduler(flags)
			if err != nil {
				return err
			}
			if err := sched.Cleanup(cmd.Context(), keepBranches, dryRun); err != nil {
				return fmt.Errorf("cleanup: %w", err)
			}
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "cleanup (dry run) complete, nothing was removed")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleanup complete")
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&keepBranches, "keep-branches", false, "remove worktrees but keep worker branches")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be removed without mutating any state or VCS ref")
	return cmd
}
