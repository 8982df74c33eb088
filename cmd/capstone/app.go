package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/capstone/internal/calendar"
	"github.com/zulandar/capstone/internal/clock"
	"github.com/zulandar/capstone/internal/config"
	"github.com/zulandar/capstone/internal/db"
	"github.com/zulandar/capstone/internal/events"
	"github.com/zulandar/capstone/internal/overdue"
	"github.com/zulandar/capstone/internal/schedule"
	"github.com/zulandar/capstone/internal/stage"
	"github.com/zulandar/capstone/internal/store"
	"github.com/zulandar/capstone/internal/task"
	"golang.org/x/term"
	"gorm.io/gorm"
)

// app is every service a command may need, wired over one connection.
type app struct {
	cfg        *config.Config
	db         *gorm.DB
	loc        *time.Location
	store      *store.GormStore
	bus        *events.Bus
	tasks      *task.Service
	schedules  *schedule.Service
	gate       *stage.Gate
	calendar   *calendar.Aggregator
	reconciler *overdue.Reconciler
}

// nowFunc is swapped by tests.
var nowFunc = time.Now

func connectFromConfig(ctx context.Context, configPath string, out io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	loc := cfg.Location()
	bus := events.NewBus()
	st := store.New(gormDB, bus)

	tasks := task.NewService(st, loc)
	tasks.Now = nowFunc
	schedules := schedule.NewService(st, loc)
	schedules.Now = nowFunc

	return &app{
		cfg:        cfg,
		db:         gormDB,
		loc:        loc,
		store:      st,
		bus:        bus,
		tasks:      tasks,
		schedules:  schedules,
		gate:       &stage.Gate{Schedules: st, Teams: st, Out: out},
		calendar:   &calendar.Aggregator{Tasks: st, Schedules: st, Bus: bus},
		reconciler: &overdue.Reconciler{Tasks: st, Now: nowFunc, Out: out},
	}, nil
}

// resolveDate accepts YYYY-MM-DD or a natural phrase like "next friday".
// Empty input stays empty.
func (a *app) resolveDate(input string) (string, error) {
	if input == "" {
		return "", nil
	}
	return clock.ResolveDate(input, nowFunc(), a.loc)
}

// confirm asks the user to type "yes". Non-interactive stdin never confirms.
func confirm(cmd *cobra.Command, prompt string) bool {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, prompt)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
