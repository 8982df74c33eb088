package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/capstone/internal/config"
	"github.com/zulandar/capstone/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var (
		configPath string
		reset      bool
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Capstone database",
		Long: `Creates the database (mysql only), migrates all tables and seeds teams from config.

With --reset, the mysql database is dropped first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath, reset, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Capstone config file")
	cmd.Flags().BoolVar(&reset, "reset", false, "drop the database before initializing")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string, reset, yes bool) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config with %d teams from %s\n", len(cfg.Teams), configPath)

	if cfg.Database.Driver == config.DriverMySQL {
		adminDB, err := db.ConnectAdmin(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to mysql at %s:%d: %w", cfg.Database.Host, cfg.Database.Port, err)
		}
		if reset {
			if !yes && !confirm(cmd, fmt.Sprintf("WARNING: This will permanently delete all data in database %q.", cfg.Database.Name)) {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
			if err := db.DropDatabase(adminDB, cfg.Database.Name); err != nil {
				return err
			}
			fmt.Fprintf(out, "Dropped database %s\n", cfg.Database.Name)
		}
		if err := db.CreateDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready\n", cfg.Database.Name)
	}

	gormDB, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedTeams(gormDB, cfg.Teams); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d teams:", len(cfg.Teams))
	for _, t := range cfg.Teams {
		fmt.Fprintf(out, " %s", t.ID)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "\nCapstone database initialized successfully.")
	return nil
}
