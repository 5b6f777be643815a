package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// newRunCommand drives a feature's task graph to completion, resuming from
// the State Manager's persisted level on a second invocation (spec.md §4.6
// "startup": Run and Resume are the same entry point).
func newRunCommand() *cobra.Command {
	flags := &commonFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run (or resume) a feature's task graph to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := openScheduler(flags)
			if err != nil {
				return err
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			go func() {
				if _, ok := <-sigCh; !ok {
					return
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "orc: interrupt received, stopping gracefully before the next level (press again to force)")
				sched.Stop(true)
				if _, ok := <-sigCh; ok {
					sched.Stop(false)
				}
			}()

			if err := sched.Run(cmd.Context()); err != nil {
				return fmt.Errorf("run: %w", err)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
