// Command orc is the CLI entry point for the orchestrator: it loads a
// task-graph document, validates it, and drives the Scheduler through the
// abstract control operations of spec.md §6 (run, retry, merge, cleanup).
package main

import (
	"fmt"
	"os"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	rootCmd := newRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
