package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/capstone/internal/apperr"
	"github.com/zulandar/capstone/internal/calendar"
	"github.com/zulandar/capstone/internal/clock"
	"github.com/zulandar/capstone/internal/schedule"
	"github.com/zulandar/capstone/internal/stage"
	"github.com/zulandar/capstone/internal/store"
	"github.com/zulandar/capstone/internal/task"
)

type handlers struct {
	Deps
}

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, h *handlers) {
	api := router.Group("/api")

	api.GET("/teams", h.listTeams)

	api.GET("/tasks", h.listTasks)
	api.POST("/tasks", h.createTask)
	api.GET("/tasks/:id", h.getTask)
	api.PUT("/tasks/:id/status", h.setTaskStatus)
	api.PUT("/tasks/:id/due", h.editTaskDue)
	api.DELETE("/tasks/:id", h.deleteTask)

	api.GET("/schedules", h.listSchedules)
	api.GET("/schedules/:id", h.getSchedule)
	api.PUT("/schedules/:id/verdict", h.setVerdict)
	api.PUT("/schedules/:id/slot", h.editSlot)
	api.POST("/schedules/:id/reattempt", h.reattempt)
	api.DELETE("/schedules/:id", h.deleteSchedule)

	api.GET("/stages/:stage/eligible", h.eligible)
	api.POST("/stages/sync", h.syncStages)

	api.GET("/calendar", h.calendarEvents)
	api.GET("/calendar/stream", h.calendarStream)
}

// teamIDs reads a comma-separated "team" query parameter.
func teamIDs(c *gin.Context) []string {
	raw := c.Query("team")
	if raw == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (h *handlers) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h *handlers) listTeams(c *gin.Context) {
	if h.Teams == nil {
		c.JSON(http.StatusOK, []teamJSON{})
		return
	}
	teams, err := h.Teams.ListTeams(c.Request.Context(), store.TeamFilter{
		IDs:            teamIDs(c),
		Adviser:        c.Query("adviser"),
		ProjectManager: c.Query("project_manager"),
		ActiveOnly:     c.Query("active") == "true",
	})
	if err != nil {
		writeError(c, &apperr.PersistenceError{Op: "list teams", Err: err})
		return
	}
	out := make([]teamJSON, len(teams))
	for i, t := range teams {
		out[i] = teamJSON{ID: t.ID, Name: t.Name, Adviser: t.Adviser, ProjectManager: t.ProjectManager, Active: t.Active}
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) listTasks(c *gin.Context) {
	f := store.TaskFilter{
		TeamIDs:        teamIDs(c),
		CollectionKind: c.Query("kind"),
		TaskManager:    c.Query("manager"),
	}
	if s := c.Query("status"); s != "" {
		f.Statuses = strings.Split(s, ",")
	}
	tasks, err := h.Tasks.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, &apperr.PersistenceError{Op: "list tasks", Err: err})
		return
	}
	switch c.Query("view") {
	case "active":
		tasks = task.ActiveView(tasks)
	case "record":
		tasks = task.RecordView(tasks)
	}
	out := make([]taskJSON, len(tasks))
	for i := range tasks {
		out[i] = toTaskJSON(&tasks[i])
	}
	c.JSON(http.StatusOK, out)
}

type createTaskRequest struct {
	TeamID         string `json:"team_id"`
	CollectionKind string `json:"collection_kind"`
	TaskManager    string `json:"task_manager"`
	Title          string `json:"title"`
	Assignee       string `json:"assignee"`
	DueDate        string `json:"due_date"`
	DueTime        string `json:"due_time"`
}

func (h *handlers) createTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	t, err := h.Tasks.Create(c.Request.Context(), task.CreateOpts{
		TeamID:         req.TeamID,
		CollectionKind: req.CollectionKind,
		TaskManager:    req.TaskManager,
		Title:          req.Title,
		Assignee:       req.Assignee,
		DueDate:        req.DueDate,
		DueTime:        req.DueTime,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTaskJSON(t))
}

func (h *handlers) getTask(c *gin.Context) {
	t, err := h.Tasks.Get(c.Request.Context(), c.Query("kind"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskJSON(t))
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *handlers) setTaskStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	t, err := h.Tasks.SetStatus(c.Request.Context(), c.Query("kind"), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskJSON(t))
}

type dueRequest struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

func (h *handlers) editTaskDue(c *gin.Context) {
	var req dueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	t, revised, err := h.Tasks.EditDueDateTime(c.Request.Context(), c.Query("kind"), c.Param("id"), req.Date, req.Time)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": toTaskJSON(t), "revised": revised})
}

func (h *handlers) deleteTask(c *gin.Context) {
	if err := h.Tasks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listSchedules(c *gin.Context) {
	f := store.ScheduleFilter{
		TeamIDs:  teamIDs(c),
		Stage:    c.Query("stage"),
		Verdict:  c.Query("verdict"),
		DateFrom: c.Query("from"),
		DateTo:   c.Query("to"),
	}
	switch c.Query("reattempt") {
	case "true":
		v := true
		f.ReAttempt = &v
	case "false":
		v := false
		f.ReAttempt = &v
	}
	out, err := h.Schedules.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, &apperr.PersistenceError{Op: "list schedules", Err: err})
		return
	}
	res := make([]scheduleJSON, len(out))
	for i := range out {
		res[i] = toScheduleJSON(&out[i])
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) getSchedule(c *gin.Context) {
	s, err := h.Schedules.Get(c.Request.Context(), c.Query("stage"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toScheduleJSON(s))
}

type verdictRequest struct {
	Verdict string `json:"verdict" binding:"required"`
}

func (h *handlers) setVerdict(c *gin.Context) {
	var req verdictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	s, err := h.Schedules.SetVerdict(c.Request.Context(), c.Query("stage"), c.Param("id"), req.Verdict)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toScheduleJSON(s))
}

type slotRequest struct {
	Date      string   `json:"date"`
	Time      string   `json:"time"`
	TimeStart string   `json:"time_start"`
	TimeEnd   string   `json:"time_end"`
	Panelists []string `json:"panelists"`
}

func (h *handlers) editSlot(c *gin.Context) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	s, err := h.Schedules.EditSlot(c.Request.Context(), c.Query("stage"), c.Param("id"), schedule.SlotInput{
		Date:      req.Date,
		Time:      req.Time,
		TimeStart: req.TimeStart,
		TimeEnd:   req.TimeEnd,
		Panelists: req.Panelists,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toScheduleJSON(s))
}

func (h *handlers) reattempt(c *gin.Context) {
	s, err := h.Gate.ScheduleReAttempt(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toScheduleJSON(s))
}

func (h *handlers) deleteSchedule(c *gin.Context) {
	if err := h.Schedules.Delete(c.Request.Context(), c.Param("id"), c.Query("confirm") == "true"); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) eligible(c *gin.Context) {
	st := c.Param("stage")
	team := c.Query("team")
	if team == "" {
		writeError(c, apperr.Validation("team", "is required"))
		return
	}
	if !stage.IsStage(st) {
		writeError(c, apperr.Validation("stage", "unknown stage %q", st))
		return
	}
	schedules, err := h.Schedules.List(c.Request.Context(), store.ScheduleFilter{TeamIDs: []string{team}})
	if err != nil {
		writeError(c, &apperr.PersistenceError{Op: "list schedules", Err: err})
		return
	}
	c.JSON(http.StatusOK, gin.H{"team_id": team, "stage": st, "eligible": stage.IsEligible(schedules, team, st)})
}

func (h *handlers) syncStages(c *gin.Context) {
	results, err := h.Gate.SyncAll(c.Request.Context())
	if err != nil {
		writeError(c, &apperr.PersistenceError{Op: "sync stages", Err: err})
		return
	}
	c.JSON(http.StatusOK, results)
}

// calendarQuery reads scope, view and cursor from the query string.
func (h *handlers) calendarQuery(c *gin.Context) (calendar.Scope, calendar.View, time.Time, error) {
	scope := calendar.Scope{All: c.Query("all") == "true", TeamIDs: teamIDs(c)}

	view := calendar.Month
	if v := c.Query("view"); v != "" {
		parsed, err := calendar.ParseView(v)
		if err != nil {
			return scope, "", time.Time{}, apperr.Validation("view", "must be day, week or month")
		}
		view = parsed
	}

	cursor := h.now().In(locOrUTC(h.Loc))
	if d := c.Query("date"); d != "" {
		parsed, err := clock.ParseDate(d, h.Loc)
		if err != nil {
			return scope, "", time.Time{}, apperr.Validation("date", "must be YYYY-MM-DD")
		}
		cursor = parsed
	}
	return scope, view, cursor, nil
}

type calendarResponse struct {
	View   calendar.View            `json:"view"`
	Start  string                   `json:"start"`
	End    string                   `json:"end"`
	Events []calendar.CalendarEvent `json:"events"`
}

func (h *handlers) calendarEvents(c *gin.Context) {
	scope, view, cursor, err := h.calendarQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	start, end := calendar.Range(view, cursor)
	evs, err := h.Calendar.ListEvents(c.Request.Context(), scope, start, end)
	if err != nil {
		writeError(c, &apperr.PersistenceError{Op: "list events", Err: err})
		return
	}
	c.JSON(http.StatusOK, calendarResponse{View: view, Start: start, End: end, Events: evs})
}

func locOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
