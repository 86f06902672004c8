package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fiberdemo",
		Short: "fiberdemo runs canned task graphs against the fiber scheduler",
		Long: `fiberdemo is a runnable showcase for the sched package: each
subcommand builds a different task graph shape (fan-out/fan-in, a
dependency chain, nested waits) and reports the scheduler's occupancy
stats once it completes.`,
	}

	rootCmd.AddCommand(
		newTriangleCommand(),
		newChainCommand(),
		newFanoutCommand(),
		newNestedCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
