package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/capstone/internal/store"
)

func newTeamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Team commands",
	}

	cmd.AddCommand(newTeamListCmd())
	return cmd
}

func newTeamListCmd() *cobra.Command {
	var (
		configPath string
		adviser    string
		pm         string
		activeOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			teams, err := a.store.ListTeams(cmd.Context(), store.TeamFilter{
				Adviser:        adviser,
				ProjectManager: pm,
				ActiveOnly:     activeOnly,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(teams) == 0 {
				fmt.Fprintln(out, "No teams found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tADVISER\tPROJECT MANAGER\tACTIVE")
			for _, t := range teams {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", t.ID, t.Name, t.Adviser, t.ProjectManager, t.Active)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	cmd.Flags().StringVar(&adviser, "adviser", "", "filter by adviser")
	cmd.Flags().StringVar(&pm, "pm", "", "filter by project manager")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active teams")
	return cmd
}
