package stage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/capstone/internal/apperr"
	"github.com/zulandar/capstone/internal/models"
	"github.com/zulandar/capstone/internal/schedule"
	"github.com/zulandar/capstone/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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
	if err := db.AutoMigrate(&models.Schedule{}, &models.Team{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func testGate(t *testing.T, teams ...string) (*Gate, *store.GormStore) {
	t.Helper()
	db := testDB(t)
	for _, id := range teams {
		if err := db.Create(&models.Team{ID: id, Name: "Team " + id, Active: true}).Error; err != nil {
			t.Fatalf("create team: %v", err)
		}
	}
	s := store.New(db, nil)
	return &Gate{Schedules: s, Teams: s}, s
}

func put(t *testing.T, s *store.GormStore, id, team, stage, verdict string) {
	t.Helper()
	if err := s.PutSchedule(context.Background(), &models.Schedule{ID: id, TeamID: team, Stage: stage, Verdict: verdict}); err != nil {
		t.Fatalf("PutSchedule: %v", err)
	}
}

func TestGenerateID(t *testing.T) {
	id, err := GenerateID()
	if err != nil {
		t.Fatalf("GenerateID: %v", err)
	}
	if !strings.HasPrefix(id, "sch-") || len(id) != 9 {
		t.Errorf("id = %q, want sch-xxxxx", id)
	}
}

func TestCheck(t *testing.T) {
	g, s := testGate(t, "a")
	ctx := context.Background()

	err := g.Check(ctx, "a", models.StageOralDefense)
	var nerr *apperr.StageNotEligibleError
	if !errors.As(err, &nerr) {
		t.Fatalf("err = %v, want StageNotEligibleError", err)
	}
	if nerr.TeamID != "a" || nerr.Stage != models.StageOralDefense {
		t.Errorf("error = %+v", nerr)
	}

	put(t, s, "sch-1", "a", models.StageManuscriptSubmission, models.VerdictApproved)
	if err := g.Check(ctx, "a", models.StageOralDefense); err != nil {
		t.Errorf("Check after approval: %v", err)
	}
	if err := g.Check(ctx, "a", "Thesis"); !apperr.IsValidation(err) {
		t.Errorf("unknown stage err = %v, want validation error", err)
	}
}

func TestSync_CreatesFirstStageForActiveTeams(t *testing.T) {
	g, s := testGate(t, "a", "b", "c")
	s.DB.Model(&models.Team{}).Where("id = ?", "c").Update("active", false)
	var out bytes.Buffer
	g.Out = &out
	ctx := context.Background()

	res, err := g.Sync(ctx, models.StageTitleDefense)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Eligible != 2 || res.Created != 2 {
		t.Errorf("result = %+v, want 2 eligible 2 created", res)
	}

	got, _ := s.ListSchedules(ctx, store.ScheduleFilter{Stage: models.StageTitleDefense})
	if len(got) != 2 {
		t.Fatalf("schedules = %d, want 2", len(got))
	}
	for _, sc := range got {
		if sc.Verdict != models.VerdictPending || sc.Date != "" || sc.IsReAttempt {
			t.Errorf("auto-created schedule = %+v", sc)
		}
		if sc.TeamName != "Team "+sc.TeamID {
			t.Errorf("TeamName = %q", sc.TeamName)
		}
	}
	if !strings.Contains(out.String(), "eligible for TitleDefense") {
		t.Errorf("output = %q", out.String())
	}

	// A second pass is a no-op.
	res, err = g.Sync(ctx, models.StageTitleDefense)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Created != 0 {
		t.Errorf("second pass created %d", res.Created)
	}
}

func TestSyncAll_StageGating(t *testing.T) {
	g, s := testGate(t, "a", "b")
	ctx := context.Background()

	put(t, s, "sch-a1", "a", models.StageTitleDefense, models.VerdictApproved)
	put(t, s, "sch-a2", "a", models.StageManuscriptSubmission, models.VerdictApproved)
	put(t, s, "sch-b1", "b", models.StageTitleDefense, models.VerdictRePresent)

	if _, err := g.SyncAll(ctx); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	all, _ := s.ListSchedules(ctx, store.ScheduleFilter{})
	counts := map[string]int{}
	for _, sc := range all {
		counts[sc.TeamID+"/"+sc.Stage]++
	}
	if counts["a/"+models.StageOralDefense] != 1 {
		t.Errorf("team a oral defense schedules = %d, want 1", counts["a/"+models.StageOralDefense])
	}
	if counts["a/"+models.StageFinalDefense] != 0 {
		t.Error("team a should not reach final defense yet")
	}
	if counts["b/"+models.StageManuscriptSubmission] != 0 {
		t.Error("team b should not reach manuscript submission")
	}

	// No schedule at stage N exists without an approved N-1 for that team.
	for _, sc := range all {
		if !IsEligible(all, sc.TeamID, sc.Stage) {
			t.Errorf("schedule %s (%s, %s) exists without eligibility", sc.ID, sc.TeamID, sc.Stage)
		}
	}
}

// failingScheduleStore fails every PutSchedule for one team.
type failingScheduleStore struct {
	*store.GormStore
	team string
}

func (f *failingScheduleStore) PutSchedule(ctx context.Context, sc *models.Schedule) error {
	if sc.TeamID == f.team {
		return errors.New("quota exceeded")
	}
	return f.GormStore.PutSchedule(ctx, sc)
}

func TestSync_PartialFailure(t *testing.T) {
	g, s := testGate(t, "a", "b")
	g.Schedules = &failingScheduleStore{GormStore: s, team: "b"}

	res, err := g.Sync(context.Background(), models.StageTitleDefense)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Created != 1 || res.Failed != 1 {
		t.Errorf("result = %+v, want 1 created 1 failed", res)
	}

	g.Schedules = s
	res, _ = g.Sync(context.Background(), models.StageTitleDefense)
	if res.Created != 1 {
		t.Errorf("retry pass created %d, want 1", res.Created)
	}
}

func TestScheduleReAttempt(t *testing.T) {
	g, s := testGate(t, "a")
	ctx := context.Background()
	put(t, s, "sch-ms", "a", models.StageManuscriptSubmission, models.VerdictApproved)
	if err := s.PutSchedule(ctx, &models.Schedule{
		ID: "sch-orig", TeamID: "a", TeamName: "Team a", Stage: models.StageOralDefense,
		Date: "2025-03-10", TimeStart: "09:00", TimeEnd: "10:00", Panelists: `["Dr. Lim"]`,
		Verdict: models.VerdictReDefense,
	}); err != nil {
		t.Fatalf("PutSchedule: %v", err)
	}

	re, err := g.ScheduleReAttempt(ctx, "sch-orig")
	if err != nil {
		t.Fatalf("ScheduleReAttempt: %v", err)
	}
	got, err := s.GetSchedule(ctx, models.StageOralDefense, re.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got.Verdict != models.VerdictPending {
		t.Errorf("Verdict = %q, want Pending", got.Verdict)
	}
	if got.Date != "" || got.Time != "" || got.TimeStart != "" || got.TimeEnd != "" {
		t.Errorf("slot = %q %q %q-%q, want blank", got.Date, got.Time, got.TimeStart, got.TimeEnd)
	}
	if got.Panelists != "[]" {
		t.Errorf("Panelists = %q, want []", got.Panelists)
	}
	if !got.IsReAttempt || got.OriginalScheduleID == nil || *got.OriginalScheduleID != "sch-orig" {
		t.Errorf("re-attempt link = %v %v", got.IsReAttempt, got.OriginalScheduleID)
	}
	if got.TeamID != "a" || got.TeamName != "Team a" {
		t.Errorf("team = %q %q", got.TeamID, got.TeamName)
	}

	if _, err := s.GetSchedule(ctx, "", "sch-orig"); err != nil {
		t.Errorf("original should be retained: %v", err)
	}
	if _, err := g.ScheduleReAttempt(ctx, "sch-orig"); !apperr.IsValidation(err) {
		t.Errorf("duplicate re-attempt err = %v, want validation error", err)
	}
}

func TestScheduleReAttempt_RequiresRetryVerdict(t *testing.T) {
	g, s := testGate(t, "a")
	ctx := context.Background()
	tests := []struct {
		id      string
		stage   string
		verdict string
	}{
		{"sch-1", models.StageTitleDefense, models.VerdictPending},
		{"sch-2", models.StageTitleDefense, models.VerdictApproved},
		{"sch-3", models.StageManuscriptSubmission, models.VerdictReDefense},
		{"sch-4", models.StageOralDefense, models.VerdictFailed},
	}
	for _, tt := range tests {
		put(t, s, tt.id, "a", tt.stage, tt.verdict)
		if _, err := g.ScheduleReAttempt(ctx, tt.id); !apperr.IsValidation(err) {
			t.Errorf("%s (%s/%s) err = %v, want validation error", tt.id, tt.stage, tt.verdict, err)
		}
	}

	if _, err := g.ScheduleReAttempt(ctx, "sch-missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing original err = %v, want ErrNotFound", err)
	}
}

func TestScheduleReAttempt_RequiresEligibility(t *testing.T) {
	g, s := testGate(t, "a")
	ctx := context.Background()
	put(t, s, "sch-oral", "a", models.StageOralDefense, models.VerdictReDefense)

	_, err := g.ScheduleReAttempt(ctx, "sch-oral")
	var nerr *apperr.StageNotEligibleError
	if !errors.As(err, &nerr) {
		t.Fatalf("err = %v, want StageNotEligibleError", err)
	}
	if nerr.TeamID != "a" || nerr.Stage != models.StageOralDefense {
		t.Errorf("error = %+v", nerr)
	}
	out, err := s.ListSchedules(ctx, store.ScheduleFilter{Stage: models.StageOralDefense})
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("schedules = %d, want only the original", len(out))
	}
}

func TestReAttemptApproved_OriginalStaysSettled(t *testing.T) {
	g, s := testGate(t, "a")
	ctx := context.Background()
	put(t, s, "sch-ms", "a", models.StageManuscriptSubmission, models.VerdictApproved)
	if err := s.PutSchedule(ctx, &models.Schedule{
		ID: "sch-orig", TeamID: "a", Stage: models.StageOralDefense,
		Date: "2025-02-10", TimeStart: "09:00", TimeEnd: "10:00", Verdict: models.VerdictReDefense,
	}); err != nil {
		t.Fatalf("PutSchedule: %v", err)
	}
	re, err := g.ScheduleReAttempt(ctx, "sch-orig")
	if err != nil {
		t.Fatalf("ScheduleReAttempt: %v", err)
	}
	re.Date, re.TimeStart, re.TimeEnd, re.Verdict = "2025-02-20", "09:00", "10:00", models.VerdictApproved
	if err := s.PutSchedule(ctx, re); err != nil {
		t.Fatalf("PutSchedule: %v", err)
	}

	res, err := g.Sync(ctx, models.StageFinalDefense)
	if err != nil || res.Created != 1 {
		t.Fatalf("Sync(FinalDefense) = %+v, %v; want one created", res, err)
	}

	svc := schedule.NewService(s, time.UTC)
	svc.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	for _, v := range []string{models.VerdictApproved, models.VerdictPending, models.VerdictFailed} {
		if _, err := svc.SetVerdict(ctx, "", "sch-orig", v); !errors.Is(err, apperr.ErrInvalidTransition) {
			t.Errorf("original Re-Defense -> %s err = %v, want ErrInvalidTransition", v, err)
		}
	}

	all, err := s.ListSchedules(ctx, store.ScheduleFilter{TeamIDs: []string{"a"}})
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if !IsEligible(all, "a", models.StageFinalDefense) {
		t.Error("team lost FinalDefense eligibility after its re-attempt was approved")
	}
}
