package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/capstone/internal/apperr"
	"github.com/zulandar/capstone/internal/calendar"
	"github.com/zulandar/capstone/internal/events"
	"github.com/zulandar/capstone/internal/models"
	"github.com/zulandar/capstone/internal/schedule"
	"github.com/zulandar/capstone/internal/stage"
	"github.com/zulandar/capstone/internal/store"
	"github.com/zulandar/capstone/internal/task"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var mar1 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

// testDB creates an in-memory SQLite database with all required tables.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Task{}, &models.Schedule{}, &models.Team{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// testDeps wires every service over one sqlite-backed store.
func testDeps(t *testing.T) (Deps, *store.GormStore) {
	t.Helper()
	db := testDB(t)
	if err := db.Create(&models.Team{ID: "team-alpha", Name: "Alpha", Members: "[]", Active: true}).Error; err != nil {
		t.Fatalf("create team: %v", err)
	}
	bus := events.NewBus()
	st := store.New(db, bus)
	now := func() time.Time { return mar1 }

	tasks := task.NewService(st, time.UTC)
	tasks.Now = now
	schedules := schedule.NewService(st, time.UTC)
	schedules.Now = now

	return Deps{
		Tasks:     tasks,
		Schedules: schedules,
		Gate:      &stage.Gate{Schedules: st, Teams: st, Out: io.Discard},
		Calendar:  &calendar.Aggregator{Tasks: st, Schedules: st, Bus: bus},
		Teams:     st,
		Loc:       time.UTC,
		Now:       now,
	}, st
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func putSchedule(t *testing.T, st *store.GormStore, s models.Schedule) {
	t.Helper()
	if s.Verdict == "" {
		s.Verdict = models.VerdictPending
	}
	if err := st.PutSchedule(context.Background(), &s); err != nil {
		t.Fatalf("put schedule: %v", err)
	}
}

func TestStart_RequiresServices(t *testing.T) {
	err := Start(context.Background(), StartOpts{})
	if err == nil {
		t.Fatal("expected error for missing services")
	}
	if !strings.Contains(err.Error(), "are required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "are required")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.Validation("date", "bad"), http.StatusUnprocessableEntity},
		{apperr.ErrRevisionCeiling, http.StatusUnprocessableEntity},
		{apperr.ErrScheduleLocked, http.StatusUnprocessableEntity},
		{apperr.ErrVerdictTooEarly, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", apperr.ErrInvalidTransition), http.StatusUnprocessableEntity},
		{&apperr.StageNotEligibleError{TeamID: "t", Stage: "OralDefense"}, http.StatusConflict},
		{apperr.ErrAnchorDeletion, http.StatusConflict},
		{fmt.Errorf("get: %w", apperr.ErrNotFound), http.StatusNotFound},
		{&apperr.PersistenceError{Op: "put", Err: errors.New("disk")}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestTasks_CreateGetAndRevise(t *testing.T) {
	d, _ := testDeps(t)
	router := NewRouter(d)

	w := do(t, router, http.MethodPost, "/api/tasks", createTaskRequest{
		TeamID: "team-alpha", CollectionKind: models.KindOral, TaskManager: models.ManagerAdviser,
		Title: "Chapter 3", DueDate: "2025-03-10", DueTime: "09:00",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	created := decode[taskJSON](t, w)
	if created.Status != models.TaskToDo || created.DueAtMs == nil {
		t.Errorf("created = %+v, want ToDo with a deadline", created)
	}

	w = do(t, router, http.MethodPut, "/api/tasks/"+created.ID+"/status", statusRequest{Status: models.TaskToReview})
	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d, body %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPut, "/api/tasks/"+created.ID+"/due", dueRequest{Date: "2025-03-15", Time: "09:00"})
	if w.Code != http.StatusOK {
		t.Fatalf("due code = %d, body %s", w.Code, w.Body.String())
	}
	got := decode[struct {
		Task    taskJSON `json:"task"`
		Revised bool     `json:"revised"`
	}](t, w)
	if !got.Revised || got.Task.Status != models.TaskToDo || got.Task.RevisionLabel != "1st Revision" {
		t.Errorf("after due edit = %+v revised=%v", got.Task, got.Revised)
	}

	w = do(t, router, http.MethodGet, "/api/tasks/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get code = %d", w.Code)
	}
	if len(decode[taskJSON](t, w).SelectableStatuses) == 0 {
		t.Error("selectable_statuses is empty")
	}
}

func TestTasks_ErrorMapping(t *testing.T) {
	d, _ := testDeps(t)
	router := NewRouter(d)

	w := do(t, router, http.MethodPost, "/api/tasks", createTaskRequest{TeamID: "team-alpha", Title: "x"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("create code = %d, want 422", w.Code)
	}
	if body := decode[errorBody](t, w); body.Field != "collection_kind" {
		t.Errorf("field = %q, want collection_kind", body.Field)
	}

	w = do(t, router, http.MethodGet, "/api/tasks/tsk-nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get missing code = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodPost, "/api/tasks", "not an object")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json code = %d, want 400", w.Code)
	}
}

func TestTasks_ListViews(t *testing.T) {
	d, _ := testDeps(t)
	router := NewRouter(d)
	ctx := context.Background()

	a, err := d.Tasks.Create(ctx, task.CreateOpts{TeamID: "team-alpha", CollectionKind: models.KindTitle, TaskManager: models.ManagerAdviser, Title: "A", DueDate: "2025-03-10", DueTime: "09:00"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := d.Tasks.Create(ctx, task.CreateOpts{TeamID: "team-alpha", CollectionKind: models.KindTitle, TaskManager: models.ManagerAdviser, Title: "B"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := d.Tasks.SetStatus(ctx, "", a.ID, models.TaskCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	w := do(t, router, http.MethodGet, "/api/tasks?team=team-alpha&view=active", nil)
	if got := decode[[]taskJSON](t, w); len(got) != 1 || got[0].Title != "B" {
		t.Errorf("active view = %+v, want only B", got)
	}
	w = do(t, router, http.MethodGet, "/api/tasks?team=team-alpha&view=record", nil)
	if got := decode[[]taskJSON](t, w); len(got) != 1 || got[0].Title != "A" {
		t.Errorf("record view = %+v, want only A", got)
	}
}

func TestSchedules_VerdictAndReattempt(t *testing.T) {
	d, st := testDeps(t)
	router := NewRouter(d)

	putSchedule(t, st, models.Schedule{ID: "sch-ms1", TeamID: "team-alpha", TeamName: "Alpha", Stage: models.StageManuscriptSubmission, Verdict: models.VerdictApproved})
	putSchedule(t, st, models.Schedule{ID: "sch-past1", TeamID: "team-alpha", TeamName: "Alpha", Stage: models.StageOralDefense, Date: "2025-02-20", TimeStart: "13:00", TimeEnd: "14:00"})
	putSchedule(t, st, models.Schedule{ID: "sch-futr1", TeamID: "team-alpha", TeamName: "Alpha", Stage: models.StageTitleDefense, Date: "2025-03-20", Time: "10:00"})

	w := do(t, router, http.MethodPut, "/api/schedules/sch-futr1/verdict", verdictRequest{Verdict: "Approved"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("future verdict code = %d, want 422", w.Code)
	}

	w = do(t, router, http.MethodPut, "/api/schedules/sch-past1/verdict", verdictRequest{Verdict: models.VerdictReDefense})
	if w.Code != http.StatusOK {
		t.Fatalf("verdict code = %d, body %s", w.Code, w.Body.String())
	}
	if got := decode[scheduleJSON](t, w); got.Verdict != models.VerdictReDefense || got.VerdictAt == nil {
		t.Errorf("after verdict = %+v, want Re-Defense with verdict_at", got)
	}

	w = do(t, router, http.MethodPost, "/api/schedules/sch-past1/reattempt", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("reattempt code = %d, body %s", w.Code, w.Body.String())
	}
	re := decode[scheduleJSON](t, w)
	if !re.IsReAttempt || re.OriginalScheduleID == nil || *re.OriginalScheduleID != "sch-past1" {
		t.Errorf("reattempt = %+v", re)
	}

	w = do(t, router, http.MethodDelete, "/api/schedules/sch-past1", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("unconfirmed delete code = %d, want 409", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/api/schedules/sch-past1?confirm=true", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("confirmed delete code = %d, want 204", w.Code)
	}
}

func TestSchedules_EditSlot(t *testing.T) {
	d, st := testDeps(t)
	router := NewRouter(d)
	putSchedule(t, st, models.Schedule{ID: "sch-oral1", TeamID: "team-alpha", Stage: models.StageOralDefense})

	w := do(t, router, http.MethodPut, "/api/schedules/sch-oral1/slot", slotRequest{Date: "2025-03-12", TimeStart: "14:00", TimeEnd: "13:00", Panelists: []string{"Dr. Cruz"}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("inverted range code = %d, want 422", w.Code)
	}

	w = do(t, router, http.MethodPut, "/api/schedules/sch-oral1/slot", slotRequest{Date: "2025-03-12", TimeStart: "13:00", TimeEnd: "14:00", Panelists: []string{"Dr. Cruz"}})
	if w.Code != http.StatusOK {
		t.Fatalf("slot code = %d, body %s", w.Code, w.Body.String())
	}
	got := decode[scheduleJSON](t, w)
	if got.Date != "2025-03-12" || len(got.Panelists) != 1 {
		t.Errorf("slot = %+v", got)
	}
}

func TestStages_EligibleAndSync(t *testing.T) {
	d, st := testDeps(t)
	router := NewRouter(d)
	putSchedule(t, st, models.Schedule{ID: "sch-title", TeamID: "team-alpha", Stage: models.StageTitleDefense, Verdict: models.VerdictApproved})

	w := do(t, router, http.MethodGet, "/api/stages/ManuscriptSubmission/eligible?team=team-alpha", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("eligible code = %d", w.Code)
	}
	if got := decode[map[string]any](t, w); got["eligible"] != true {
		t.Errorf("eligible = %v, want true", got)
	}

	w = do(t, router, http.MethodGet, "/api/stages/Thesis/eligible?team=team-alpha", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown stage code = %d, want 422", w.Code)
	}

	w = do(t, router, http.MethodPost, "/api/stages/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sync code = %d, body %s", w.Code, w.Body.String())
	}
	var synced []stage.SyncResult
	if err := json.Unmarshal(w.Body.Bytes(), &synced); err != nil {
		t.Fatalf("decode sync: %v", err)
	}
	created := 0
	for _, r := range synced {
		created += r.Created
	}
	if created != 1 {
		t.Errorf("sync created = %d, want 1 (%+v)", created, synced)
	}
	out, err := st.ListSchedules(context.Background(), store.ScheduleFilter{Stage: models.StageManuscriptSubmission})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].Verdict != models.VerdictPending {
		t.Errorf("manuscript schedules = %+v, want one Pending", out)
	}
}

func TestCalendar_Scope(t *testing.T) {
	d, st := testDeps(t)
	router := NewRouter(d)
	putSchedule(t, st, models.Schedule{ID: "sch-oral1", TeamID: "team-alpha", TeamName: "Alpha", Stage: models.StageOralDefense, Date: "2025-03-12", TimeStart: "13:00", TimeEnd: "14:00"})
	if _, err := d.Tasks.Create(context.Background(), task.CreateOpts{TeamID: "team-alpha", CollectionKind: models.KindOral, TaskManager: models.ManagerAdviser, Title: "Slides", DueDate: "2025-03-05", DueTime: "09:00"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	w := do(t, router, http.MethodGet, "/api/calendar?view=month&date=2025-03-01&team=team-alpha", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", w.Code, w.Body.String())
	}
	got := decode[calendarResponse](t, w)
	if got.Start != "2025-03-01" || got.End != "2025-03-31" || len(got.Events) != 2 {
		t.Errorf("team calendar = %+v", got)
	}

	w = do(t, router, http.MethodGet, "/api/calendar?view=month&date=2025-03-01&all=true", nil)
	if got := decode[calendarResponse](t, w); len(got.Events) != 1 || got.Events[0].SourceKind != calendar.SourceSchedule {
		t.Errorf("all calendar = %+v, want schedules only", got.Events)
	}

	w = do(t, router, http.MethodGet, "/api/calendar?view=year", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad view code = %d, want 422", w.Code)
	}
}

func TestCalendarStream_PushesChanges(t *testing.T) {
	d, _ := testDeps(t)
	srv := httptest.NewServer(NewRouter(d))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/calendar/stream?team=team-alpha&date=2025-03-01", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %q", ct)
	}

	lines := make(chan string, 64)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	// next returns the data line of the next event with the given name.
	next := func(name string) string {
		t.Helper()
		timeout := time.After(5 * time.Second)
		seen := false
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					t.Fatalf("stream closed waiting for %s", name)
				}
				if line == "event: "+name {
					seen = true
				} else if seen && strings.HasPrefix(line, "data: ") {
					return strings.TrimPrefix(line, "data: ")
				}
			case <-timeout:
				t.Fatalf("timed out waiting for %s", name)
			}
		}
	}

	next("connected")
	if data := next("calendar"); !strings.Contains(data, `"events":[]`) {
		t.Errorf("initial push = %s, want empty events", data)
	}

	created, err := d.Tasks.Create(context.Background(), task.CreateOpts{TeamID: "team-alpha", CollectionKind: models.KindTitle, TaskManager: models.ManagerAdviser, Title: "Draft", DueDate: "2025-03-05", DueTime: "09:00"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if data := next("calendar"); !strings.Contains(data, created.ID) {
		t.Errorf("push after create = %s, want %s", data, created.ID)
	}
}

func TestWriteSSE(t *testing.T) {
	var buf bytes.Buffer
	writeSSE(&buf, "heartbeat", map[string]string{"timestamp": "now"})
	want := "event: heartbeat\ndata: {\"timestamp\":\"now\"}\n\n"
	if buf.String() != want {
		t.Errorf("writeSSE = %q, want %q", buf.String(), want)
	}
}
