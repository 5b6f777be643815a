package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waveforge/orc/internal/graph"
)

// newValidateCommand checks a task-graph document against every rule of
// spec.md §4.1 without opening a Scheduler or touching the checkout.
func newValidateCommand() *cobra.Command {
	var graphPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a task-graph document",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(graphPath)
			if err != nil {
				return err
			}

			if err := graph.Validate(g); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), err)
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "graph %q is valid: %d task(s) across %d level(s)\n",
				g.FeatureID, len(g.Tasks), g.MaxLevel())
			return nil
		},
	}

	cmd.Flags().StringVar(&graphPath, "graph", "", "path to the task-graph document (JSON or YAML)")
	_ = cmd.MarkFlagRequired("graph")
	return cmd
}
