package api

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/capstone/internal/calendar"
)

// heartbeatInterval is how often an idle stream sends a heartbeat event.
var heartbeatInterval = 15 * time.Second

type calendarPush struct {
	Start  string                   `json:"start"`
	End    string                   `json:"end"`
	Events []calendar.CalendarEvent `json:"events"`
}

// calendarStream pushes the calendar view for the query's scope every time
// a task or schedule in scope changes.
func (h *handlers) calendarStream(c *gin.Context) {
	scope, view, cursor, err := h.calendarQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
	c.Writer.Flush()

	ctx := c.Request.Context()
	updates, stop := h.Calendar.Watch(ctx, scope, view, cursor)
	defer stop()

	start, end := calendar.Range(view, cursor)
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case evs, ok := <-updates:
			if !ok {
				return
			}
			writeSSE(c.Writer, "calendar", calendarPush{Start: start, End: end, Events: evs})
			c.Writer.Flush()
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
