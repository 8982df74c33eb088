package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/capstone/internal/models"
	"github.com/zulandar/capstone/internal/schedule"
	"github.com/zulandar/capstone/internal/store"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Defense schedule commands",
	}

	cmd.AddCommand(newScheduleListCmd())
	cmd.AddCommand(newScheduleShowCmd())
	cmd.AddCommand(newScheduleEditCmd())
	cmd.AddCommand(newScheduleVerdictCmd())
	cmd.AddCommand(newScheduleReattemptCmd())
	cmd.AddCommand(newScheduleDeleteCmd())
	return cmd
}

// slotText renders a schedule's date and time for listings.
func slotText(s *models.Schedule) string {
	if s.Date == "" {
		return "unscheduled"
	}
	if models.UsesTimeRange(s.Stage) {
		if s.TimeStart == "" {
			return s.Date
		}
		return s.Date + " " + s.TimeStart + "-" + s.TimeEnd
	}
	return strings.TrimSpace(s.Date + " " + s.Time)
}

func newScheduleListCmd() *cobra.Command {
	var (
		configPath string
		teams      []string
		stage      string
		verdict    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			list, err := a.schedules.List(cmd.Context(), store.ScheduleFilter{TeamIDs: teams, Stage: stage, Verdict: verdict})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No schedules found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTEAM\tSTAGE\tSLOT\tVERDICT\tRE-ATTEMPT")
			for i := range list {
				s := &list[i]
				re := ""
				if s.IsReAttempt && s.OriginalScheduleID != nil {
					re = "of " + *s.OriginalScheduleID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.TeamID, s.Stage, slotText(s), s.Verdict, re)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	cmd.Flags().StringSliceVar(&teams, "team", nil, "filter by team id (repeatable)")
	cmd.Flags().StringVar(&stage, "stage", "", "filter by stage")
	cmd.Flags().StringVar(&verdict, "verdict", "", "filter by verdict")
	return cmd
}

func newScheduleShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			s, err := a.schedules.Get(cmd.Context(), "", args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %s\n", s.ID)
			fmt.Fprintf(out, "Team:      %s (%s)\n", s.TeamName, s.TeamID)
			fmt.Fprintf(out, "Stage:     %s\n", s.Stage)
			fmt.Fprintf(out, "Slot:      %s\n", slotText(s))
			if models.HasPanel(s.Stage) {
				fmt.Fprintf(out, "Panel:     %s\n", strings.Join(schedule.Panelists(s), ", "))
			}
			fmt.Fprintf(out, "Verdict:   %s\n", s.Verdict)
			fmt.Fprintf(out, "Choices:   %s\n", strings.Join(schedule.Verdicts(s.Stage), ", "))
			if s.IsReAttempt && s.OriginalScheduleID != nil {
				fmt.Fprintf(out, "Re-attempt of %s\n", *s.OriginalScheduleID)
			}
			if !schedule.CanEdit(s) {
				fmt.Fprintln(out, "Locked:    slot and panel can no longer change")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	return cmd
}

func newScheduleEditCmd() *cobra.Command {
	var (
		configPath string
		in         schedule.SlotInput
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Set a schedule's slot and panel",
		Long: `Sets the date, time and panel. Title defense and manuscript submission take
--at; the other stages take --from and --to. Manuscript submission has no panel.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if in.Date, err = a.resolveDate(in.Date); err != nil {
				return err
			}
			s, err := a.schedules.EditSlot(cmd.Context(), "", args[0], in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schedule %s set for %s\n", s.ID, slotText(s))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	cmd.Flags().StringVar(&in.Date, "date", "", "slot date")
	cmd.Flags().StringVar(&in.Time, "at", "", "slot time HH:MM")
	cmd.Flags().StringVar(&in.TimeStart, "from", "", "slot start HH:MM")
	cmd.Flags().StringVar(&in.TimeEnd, "to", "", "slot end HH:MM")
	cmd.Flags().StringSliceVar(&in.Panelists, "panel", nil, "panelist name (repeatable)")
	return cmd
}

func newScheduleVerdictCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "verdict <id> <verdict>",
		Short: "Record a schedule's verdict",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			s, err := a.schedules.SetVerdict(cmd.Context(), "", args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Schedule %s verdict: %s\n", s.ID, s.Verdict)
			if s.Verdict == schedule.RetryVerdict(s.Stage) {
				fmt.Fprintf(out, "Run 'capstone schedule reattempt %s' to book the re-attempt.\n", s.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	return cmd
}

func newScheduleReattemptCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reattempt <original-id>",
		Short: "Create a re-attempt of a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			s, err := a.gate.ScheduleReAttempt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created re-attempt %s of %s\n", s.ID, args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	return cmd
}

func newScheduleDeleteCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a schedule",
		Long:  "Deletes a schedule. Originals anchor next-stage eligibility, so deleting one asks for confirmation unless --yes is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			confirmed := yes
			if !confirmed {
				s, err := a.schedules.Get(cmd.Context(), "", args[0])
				if err != nil {
					return err
				}
				if !s.IsReAttempt {
					confirmed = confirm(cmd, fmt.Sprintf("Schedule %s is the team's %s record; deleting it can change stage eligibility.", s.ID, s.Stage))
					if !confirmed {
						fmt.Fprintln(out, "Aborted.")
						return nil
					}
				}
			}
			if err := a.schedules.Delete(cmd.Context(), args[0], confirmed); err != nil {
				return err
			}
			fmt.Fprintf(out, "Deleted schedule %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}
