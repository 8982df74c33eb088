package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/capstone/internal/apperr"
	"github.com/zulandar/capstone/internal/stage"
	"github.com/zulandar/capstone/internal/store"
)

func newStageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Defense stage commands",
	}

	cmd.AddCommand(newStageSyncCmd())
	cmd.AddCommand(newStageEligibleCmd())
	return cmd
}

func newStageSyncCmd() *cobra.Command {
	var (
		configPath string
		only       string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create schedules for newly eligible teams",
		Long:  "Creates an empty Pending schedule for every active team that just became eligible for a stage. Runs every stage in order unless --stage is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			var results []stage.SyncResult
			if only != "" {
				res, err := a.gate.Sync(cmd.Context(), only)
				if err != nil {
					return err
				}
				results = []stage.SyncResult{res}
			} else {
				results, err = a.gate.SyncAll(cmd.Context())
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "%-22s eligible=%d created=%d failed=%d\n", r.Stage, r.Eligible, r.Created, r.Failed)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	cmd.Flags().StringVar(&only, "stage", "", "sync a single stage")
	return cmd
}

func newStageEligibleCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "eligible <team> <stage>",
		Short: "Check whether a team may be scheduled for a stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			team, st := args[0], args[1]
			if !stage.IsStage(st) {
				return apperr.Validation("stage", "unknown stage %q", st)
			}
			list, err := a.schedules.List(cmd.Context(), store.ScheduleFilter{TeamIDs: []string{team}})
			if err != nil {
				return err
			}
			if !stage.IsEligible(list, team, st) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not eligible for %s\n", team, st)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is eligible for %s\n", team, st)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	return cmd
}
