package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/capstone/internal/store"
	"github.com/zulandar/capstone/internal/task"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Team task commands",
	}

	cmd.AddCommand(newTaskCreateCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskShowCmd())
	cmd.AddCommand(newTaskStatusCmd())
	cmd.AddCommand(newTaskDueCmd())
	cmd.AddCommand(newTaskDeleteCmd())
	return cmd
}

func newTaskCreateCmd() *cobra.Command {
	var (
		configPath string
		opts       task.CreateOpts
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Long:  "Creates a ToDo task for a team. --due accepts YYYY-MM-DD or a phrase like \"next friday\".",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if opts.DueDate, err = a.resolveDate(opts.DueDate); err != nil {
				return err
			}
			t, err := a.tasks.Create(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s\n", t.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	cmd.Flags().StringVar(&opts.TeamID, "team", "", "team id (required)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "task title (required)")
	cmd.Flags().StringVar(&opts.CollectionKind, "kind", "title", "task collection (title, oral, final, final-redefense)")
	cmd.Flags().StringVar(&opts.TaskManager, "manager", "Adviser", "task manager (Adviser, ProjectManager)")
	cmd.Flags().StringVar(&opts.Assignee, "assignee", "", "team member assigned")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date")
	cmd.Flags().StringVar(&opts.DueTime, "at", "", "due time HH:MM")
	cmd.MarkFlagRequired("team")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var (
		configPath string
		teams      []string
		kind       string
		status     string
		view       string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long:  "Lists tasks with optional filters. --view active hides completed tasks; --view record shows only them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			f := store.TaskFilter{TeamIDs: teams, CollectionKind: kind}
			if status != "" {
				f.Statuses = strings.Split(status, ",")
			}
			tasks, err := a.tasks.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			switch view {
			case "", "all":
			case "active":
				tasks = task.ActiveView(tasks)
			case "record":
				tasks = task.RecordView(tasks)
			default:
				return fmt.Errorf("unknown view %q (use active, record or all)", view)
			}

			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTEAM\tKIND\tSTATUS\tDUE\tREVISION\tTITLE")
			for i := range tasks {
				t := &tasks[i]
				due := strings.TrimSpace(t.DueDate + " " + t.DueTime)
				if due == "" {
					due = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.TeamID, t.CollectionKind, t.Status, due, task.RevisionLabel(t), t.Title)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	cmd.Flags().StringSliceVar(&teams, "team", nil, "filter by team id (repeatable)")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by collection")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (comma separated)")
	cmd.Flags().StringVar(&view, "view", "all", "active, record or all")
	return cmd
}

func newTaskShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			t, err := a.tasks.Get(cmd.Context(), "", args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %s\n", t.ID)
			fmt.Fprintf(out, "Team:      %s\n", t.TeamID)
			fmt.Fprintf(out, "Kind:      %s\n", t.CollectionKind)
			fmt.Fprintf(out, "Manager:   %s\n", t.TaskManager)
			fmt.Fprintf(out, "Title:     %s\n", t.Title)
			if t.Assignee != "" {
				fmt.Fprintf(out, "Assignee:  %s\n", t.Assignee)
			}
			fmt.Fprintf(out, "Status:    %s\n", t.Status)
			fmt.Fprintf(out, "Due:       %s\n", strings.TrimSpace(t.DueDate+" "+t.DueTime))
			fmt.Fprintf(out, "Revision:  %s\n", task.RevisionLabel(t))
			fmt.Fprintf(out, "Choices:   %s\n", strings.Join(task.SelectableStatuses(t.TaskManager), ", "))
			if t.CompletedAt != nil {
				fmt.Fprintf(out, "Completed: %s\n", t.CompletedAt.In(a.loc).Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	return cmd
}

func newTaskStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			t, err := a.tasks.SetStatus(cmd.Context(), "", args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), task.Describe(t))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	return cmd
}

func newTaskDueCmd() *cobra.Command {
	var (
		configPath string
		date       string
		at         string
	)

	cmd := &cobra.Command{
		Use:   "due <id>",
		Short: "Set a task's deadline",
		Long:  "Sets the due date and time. Moving the deadline of a task under review, missed or completed reopens it as a revision.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if date, err = a.resolveDate(date); err != nil {
				return err
			}
			t, revised, err := a.tasks.EditDueDateTime(cmd.Context(), "", args[0], date, at)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, task.Describe(t))
			if revised {
				fmt.Fprintf(out, "Reopened as %s\n", task.RevisionLabel(t))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	cmd.Flags().StringVar(&date, "date", "", "due date (required)")
	cmd.Flags().StringVar(&at, "at", "", "due time HH:MM (required)")
	cmd.MarkFlagRequired("date")
	cmd.MarkFlagRequired("at")
	return cmd
}

func newTaskDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd.Context(), configPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := a.tasks.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	return cmd
}
