// Package sweeper runs the background passes that keep task and schedule
// state current: overdue tasks become Missed and newly eligible teams get
// their next-stage schedule.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sony/gobreaker"
	"github.com/zulandar/capstone/internal/overdue"
	"github.com/zulandar/capstone/internal/stage"
)

const defaultPollInterval = time.Minute

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Opts configures a sweeper. Cron, when set, takes precedence over PollInterval.
type Opts struct {
	Reconciler   *overdue.Reconciler
	Gate         *stage.Gate
	Cron         string
	PollInterval time.Duration
	Out          io.Writer

	// Breaker guards the store across sweeps. Run creates one with
	// NewBreaker when nil.
	Breaker *gobreaker.CircuitBreaker
}

// NewBreaker returns a breaker that opens after three consecutive failed
// sweeps and probes again after timeout. Cancellation is not a failure.
func NewBreaker(timeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sweeper",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Circuit breaker %q: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
}

// Report summarizes one sweep.
type Report struct {
	Overdue overdue.Result
	Stages  []stage.SyncResult
}

// Created returns the number of schedules created across stages.
func (r Report) Created() int {
	n := 0
	for _, s := range r.Stages {
		n += s.Created
	}
	return n
}

// RunOnce runs every phase once. A failing phase is logged and the next
// phase still runs; the failures are returned joined.
func RunOnce(ctx context.Context, opts Opts) (Report, error) {
	var rep Report
	var errs []error

	// Phase 1: Mark overdue tasks Missed.
	if opts.Reconciler != nil {
		res, err := opts.Reconciler.Reconcile(ctx)
		rep.Overdue = res
		if err != nil {
			log.Printf("sweeper overdue error: %v", err)
			errs = append(errs, err)
		}
	}

	// Phase 2: Create schedules for newly eligible teams.
	if opts.Gate != nil {
		res, err := opts.Gate.SyncAll(ctx)
		rep.Stages = res
		if err != nil {
			log.Printf("sweeper stage sync error: %v", err)
			errs = append(errs, err)
		}
	}

	return rep, errors.Join(errs...)
}

// Run sweeps until ctx is cancelled.
func Run(ctx context.Context, opts Opts) error {
	if opts.Reconciler == nil && opts.Gate == nil {
		return fmt.Errorf("sweeper: nothing to run")
	}
	if opts.Cron != "" {
		if _, err := cronParser.Parse(opts.Cron); err != nil {
			return fmt.Errorf("sweeper: cron %q: %w", opts.Cron, err)
		}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Breaker == nil {
		opts.Breaker = NewBreaker(5 * opts.PollInterval)
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	if opts.Cron != "" {
		fmt.Fprintf(out, "Sweeper starting (cron %q)...\n", opts.Cron)
	} else {
		fmt.Fprintf(out, "Sweeper starting (poll every %s)...\n", opts.PollInterval)
	}
	defer fmt.Fprintf(out, "Sweeper stopped.\n")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		rep, err := sweep(ctx, opts)
		if errors.Is(err, gobreaker.ErrOpenState) {
			log.Printf("sweeper: store unavailable, skipping sweep")
		}
		if rep.Overdue.Missed > 0 || rep.Created() > 0 {
			fmt.Fprintf(out, "Sweep: %d task(s) missed, %d schedule(s) created\n", rep.Overdue.Missed, rep.Created())
		}

		wait := opts.PollInterval
		if opts.Cron != "" {
			wait = nextCronDuration(opts.Cron, time.Now())
		}
		sleepWithContext(ctx, wait)
	}
}

// sweep runs RunOnce through opts.Breaker, returning gobreaker.ErrOpenState
// without touching the store while the breaker is open.
func sweep(ctx context.Context, opts Opts) (Report, error) {
	if opts.Breaker == nil {
		return RunOnce(ctx, opts)
	}
	var rep Report
	_, err := opts.Breaker.Execute(func() (interface{}, error) {
		var err error
		rep, err = RunOnce(ctx, opts)
		return nil, err
	})
	return rep, err
}

// nextCronDuration parses a 5-field cron expression and returns the duration
// from now until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string, now time.Time) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	d := sched.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
