// Package api serves the lifecycle engine over HTTP as JSON, with a
// server-sent event stream for live calendar views.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/capstone/internal/calendar"
	"github.com/zulandar/capstone/internal/schedule"
	"github.com/zulandar/capstone/internal/stage"
	"github.com/zulandar/capstone/internal/store"
	"github.com/zulandar/capstone/internal/task"
)

// Deps are the services the handlers call.
type Deps struct {
	Tasks     *task.Service
	Schedules *schedule.Service
	Gate      *stage.Gate
	Calendar  *calendar.Aggregator
	Teams     store.TeamStore
	Loc       *time.Location
	Now       func() time.Time
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Deps Deps
	Port int
	Out  io.Writer
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, &handlers{Deps: d})
	return router
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Deps.Tasks == nil || opts.Deps.Schedules == nil || opts.Deps.Gate == nil || opts.Deps.Calendar == nil {
		return fmt.Errorf("api: task, schedule, stage and calendar services are required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(opts.Deps)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "API listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
