package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newArchiveCommand snapshots a feature's current state into a shared
// bolt-backed archive database, so its history survives the next run
// overwriting state.yaml.
func newArchiveCommand() *cobra.Command {
	flags := &commonFlags{}
	var archivePath string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Snapshot the feature's current state into a durable archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := openScheduler(flags)
			if err != nil {
				return err
			}
			if err := sched.Archive(archivePath); err != nil {
				return fmt.Errorf("archive: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "archive complete")
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&archivePath, "archive-path", "", "path to the archive database (default <home>/archive.db)")
	return cmd
}
