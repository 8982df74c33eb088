package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/capstone/internal/calendar"
	"github.com/zulandar/capstone/internal/clock"
)

func newCalendarCmd() *cobra.Command {
	var (
		configPath string
		view       string
		date       string
		teams      []string
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show calendar events",
		Long: `Lists task deadlines and defense schedules for a day, week or month.

--all shows every team's schedules (the coordinator view, without tasks);
--team limits to the given teams and includes their open task deadlines.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			v, err := calendar.ParseView(view)
			if err != nil {
				return err
			}
			cursor := nowFunc().In(a.loc)
			if date != "" {
				resolved, err := a.resolveDate(date)
				if err != nil {
					return err
				}
				if cursor, err = clock.ParseDate(resolved, a.loc); err != nil {
					return err
				}
			}

			start, end := calendar.Range(v, cursor)
			evs, err := a.calendar.ListEvents(cmd.Context(), calendar.Scope{All: all, TeamIDs: teams}, start, end)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s to %s\n", start, end)
			if len(evs) == 0 {
				fmt.Fprintln(out, "No events.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, e := range evs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Date, e.Title, e.SourceKind, e.SourceRef)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	cmd.Flags().StringVar(&view, "view", "month", "day, week or month")
	cmd.Flags().StringVar(&date, "date", "", "any date inside the period (default today)")
	cmd.Flags().StringSliceVar(&teams, "team", nil, "team id (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "every team's schedules")
	return cmd
}
