package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// defaultConfig is the config path every command falls back to.
const defaultConfig = "capstone.yaml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "capstone",
		Short:        "Capstone: defense lifecycle tracking",
		Long:         "Capstone tracks thesis team tasks, defense schedules and verdicts from title defense to final re-defense.",
		SilenceUsage: true,
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newTeamCmd())
	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newScheduleCmd())
	cmd.AddCommand(newStageCmd())
	cmd.AddCommand(newReconcileCmd())
	cmd.AddCommand(newCalendarCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "capstone %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
