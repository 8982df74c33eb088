package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/capstone/internal/api"
	"github.com/zulandar/capstone/internal/config"
	"github.com/zulandar/capstone/internal/db"
	"github.com/zulandar/capstone/internal/sweeper"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		noSweep    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background sweeper",
		Long: `Serves the JSON API and calendar stream, and runs the overdue and stage sweeps
in the background, until interrupted. Edits to the teams in the config file are
applied without a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			a, err := connectFromConfig(cmd.Context(), configPath, out)
			if err != nil {
				return err
			}
			if port == 0 {
				port = a.cfg.API.Port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				return api.Start(ctx, api.StartOpts{
					Deps: api.Deps{
						Tasks:     a.tasks,
						Schedules: a.schedules,
						Gate:      a.gate,
						Calendar:  a.calendar,
						Teams:     a.store,
						Loc:       a.loc,
						Now:       nowFunc,
					},
					Port: port,
					Out:  out,
				})
			})
			if !noSweep {
				g.Go(func() error {
					return sweeper.Run(ctx, sweeper.Opts{
						Reconciler:   a.reconciler,
						Gate:         a.gate,
						Cron:         a.cfg.Sweep.Cron,
						PollInterval: a.cfg.Sweep.PollInterval,
						Out:          out,
					})
				})
			}
			g.Go(func() error {
				return config.Watch(ctx, configPath, func(cfg *config.Config) {
					if err := db.SeedTeams(a.db, cfg.Teams); err != nil {
						log.Printf("serve: reseed teams: %v", err)
						return
					}
					fmt.Fprintf(out, "Reloaded %d teams from %s\n", len(cfg.Teams), configPath)
				})
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (default from config)")
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "serve the API without the background sweeper")
	return cmd
}
