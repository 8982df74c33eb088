package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/capstone/internal/sweeper"
)

func newReconcileCmd() *cobra.Command {
	var (
		configPath string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Mark overdue tasks Missed",
		Long: `Marks every task whose deadline has passed as Missed. Completed tasks are never touched.

With --watch, keeps sweeping on the configured cron or poll interval and also
creates schedules for newly eligible teams, until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			a, err := connectFromConfig(cmd.Context(), configPath, out)
			if err != nil {
				return err
			}

			if !watch {
				res, err := a.reconciler.Reconcile(cmd.Context())
				fmt.Fprintf(out, "Checked %d, missed %d, failed %d\n", res.Checked, res.Missed, res.Failed)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return sweeper.Run(ctx, sweeper.Opts{
				Reconciler:   a.reconciler,
				Gate:         a.gate,
				Cron:         a.cfg.Sweep.Cron,
				PollInterval: a.cfg.Sweep.PollInterval,
				Out:          out,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep sweeping until interrupted")
	return cmd
}
