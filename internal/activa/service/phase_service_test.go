package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/repository"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/testutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func phaseFixture(id, key string, sort int, start, end *time.Time) entity.ProjectPhase {
	return entity.ProjectPhase{
		ID:        id,
		ProjectID: "prj-test",
		PhaseKey:  key,
		Name:      key,
		SortOrder: sort,
		StartDate: start,
		EndDate:   end,
	}
}

func TestPropagateFillsEmptyFollowers(t *testing.T) {
	phases := []entity.ProjectPhase{
		phaseFixture("p1", "prepare", 1, testutil.DatePtr(2025, 1, 1), nil),
		phaseFixture("p2", "explore", 2, nil, nil),
		phaseFixture("p3", "realize", 3, nil, nil),
	}

	newEnd := date(2025, 1, 20)
	result := PropagatePhaseEdit(phases, "p1", newEnd, nil)

	if result[0].EndDate == nil || !result[0].EndDate.Equal(newEnd) {
		t.Fatalf("Edited phase end not applied: %v", result[0].EndDate)
	}

	// Next phase starts the day after, spans the default 7 days
	wantStart := date(2025, 1, 21)
	wantEnd := date(2025, 1, 28)
	if result[1].StartDate == nil || !result[1].StartDate.Equal(wantStart) {
		t.Errorf("Expected explore start %v, got %v", wantStart, result[1].StartDate)
	}
	if result[1].EndDate == nil || !result[1].EndDate.Equal(wantEnd) {
		t.Errorf("Expected explore end %v, got %v", wantEnd, result[1].EndDate)
	}

	// And the cascade continues from there
	if result[2].StartDate == nil || !result[2].StartDate.Equal(date(2025, 1, 29)) {
		t.Errorf("Expected realize start 2025-01-29, got %v", result[2].StartDate)
	}
}

func TestPropagateNeverOverwritesUserDates(t *testing.T) {
	userStart := testutil.DatePtr(2025, 3, 1)
	userEnd := testutil.DatePtr(2025, 3, 15)
	phases := []entity.ProjectPhase{
		phaseFixture("p1", "prepare", 1, testutil.DatePtr(2025, 1, 1), testutil.DatePtr(2025, 1, 10)),
		phaseFixture("p2", "explore", 2, userStart, userEnd),
		phaseFixture("p3", "realize", 3, nil, nil),
	}

	result := PropagatePhaseEdit(phases, "p1", date(2025, 2, 1), nil)

	if !result[1].StartDate.Equal(*userStart) || !result[1].EndDate.Equal(*userEnd) {
		t.Errorf("User-set dates were modified: %v - %v", result[1].StartDate, result[1].EndDate)
	}

	// The cascade cursor advances past the user-set phase
	if result[2].StartDate == nil || !result[2].StartDate.Equal(date(2025, 3, 16)) {
		t.Errorf("Expected realize start 2025-03-16, got %v", result[2].StartDate)
	}
}

func TestPropagateKeepsEarlierUserDateEvenIfOutOfOrder(t *testing.T) {
	// User set explore to end before the new prepare end. The edit wins for
	// prepare, the user date stays for explore, and no reordering happens.
	phases := []entity.ProjectPhase{
		phaseFixture("p1", "prepare", 1, testutil.DatePtr(2025, 1, 1), testutil.DatePtr(2025, 1, 10)),
		phaseFixture("p2", "explore", 2, testutil.DatePtr(2025, 1, 5), testutil.DatePtr(2025, 1, 8)),
	}

	result := PropagatePhaseEdit(phases, "p1", date(2025, 2, 1), nil)

	if !result[0].EndDate.Equal(date(2025, 2, 1)) {
		t.Errorf("Edited end not applied: %v", result[0].EndDate)
	}
	if !result[1].StartDate.Equal(date(2025, 1, 5)) || !result[1].EndDate.Equal(date(2025, 1, 8)) {
		t.Errorf("Out-of-order user dates must be preserved: %v - %v", result[1].StartDate, result[1].EndDate)
	}
}

func TestPropagateWithExplicitStart(t *testing.T) {
	phases := []entity.ProjectPhase{
		phaseFixture("p1", "prepare", 1, nil, nil),
		phaseFixture("p2", "explore", 2, nil, nil),
	}

	start := date(2025, 1, 5)
	result := PropagatePhaseEdit(phases, "p1", date(2025, 1, 15), &start)

	if result[0].StartDate == nil || !result[0].StartDate.Equal(start) {
		t.Errorf("Expected start %v applied, got %v", start, result[0].StartDate)
	}
}

func TestPropagateDoesNotTouchEarlierPhases(t *testing.T) {
	phases := []entity.ProjectPhase{
		phaseFixture("p1", "prepare", 1, nil, nil),
		phaseFixture("p2", "explore", 2, testutil.DatePtr(2025, 2, 1), nil),
		phaseFixture("p3", "realize", 3, nil, nil),
	}

	result := PropagatePhaseEdit(phases, "p2", date(2025, 2, 20), nil)

	if result[0].StartDate != nil || result[0].EndDate != nil {
		t.Errorf("Phase before the edit must stay untouched: %v - %v", result[0].StartDate, result[0].EndDate)
	}
	if result[2].StartDate == nil || !result[2].StartDate.Equal(date(2025, 2, 21)) {
		t.Errorf("Expected realize start 2025-02-21, got %v", result[2].StartDate)
	}
}

func TestPropagateUnknownPhaseID(t *testing.T) {
	phases := []entity.ProjectPhase{
		phaseFixture("p1", "prepare", 1, nil, nil),
	}

	result := PropagatePhaseEdit(phases, "missing", date(2025, 1, 15), nil)

	if result[0].StartDate != nil || result[0].EndDate != nil {
		t.Errorf("Unknown phase id must leave phases unchanged: %v - %v", result[0].StartDate, result[0].EndDate)
	}
}

func TestPropagateSortsBySortOrder(t *testing.T) {
	// Input arrives unordered; propagation runs in sort_order sequence
	phases := []entity.ProjectPhase{
		phaseFixture("p2", "explore", 2, nil, nil),
		phaseFixture("p1", "prepare", 1, nil, nil),
	}

	result := PropagatePhaseEdit(phases, "p1", date(2025, 1, 10), nil)

	if result[0].ID != "p1" || result[1].ID != "p2" {
		t.Fatalf("Expected sorted output p1,p2 got %s,%s", result[0].ID, result[1].ID)
	}
	if result[1].StartDate == nil || !result[1].StartDate.Equal(date(2025, 1, 11)) {
		t.Errorf("Expected explore start 2025-01-11, got %v", result[1].StartDate)
	}
}

func TestSaveAllPhasesUpdatesProjectDates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db, nil)
	svc := NewPhaseService(repos.Project, zap.NewNop())

	project := testutil.SeedProject(t, db, "Phase save", nil, nil)

	phases := make([]entity.ProjectPhase, 0, 2)
	for i, key := range []string{"prepare", "explore"} {
		phase := entity.ProjectPhase{
			ID:        uuid.New().String()[:32],
			ProjectID: project.ID,
			PhaseKey:  key,
			Name:      key,
			SortOrder: i + 1,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := repos.Project.CreatePhase(context.Background(), &phase); err != nil {
			t.Fatalf("seed phase: %v", err)
		}
		phases = append(phases, phase)
	}

	phases[0].StartDate = testutil.DatePtr(2025, 1, 1)
	phases[0].EndDate = testutil.DatePtr(2025, 1, 20)
	phases[1].StartDate = testutil.DatePtr(2025, 1, 21)
	phases[1].EndDate = testutil.DatePtr(2025, 2, 28)

	result, err := svc.SaveAllPhases(context.Background(), project.ID, phases)
	if err != nil {
		t.Fatalf("SaveAllPhases failed: %v", err)
	}
	if !result.Success {
		t.Error("Expected success result")
	}
	if result.ProjectStart == nil || !result.ProjectStart.Equal(date(2025, 1, 1)) {
		t.Errorf("Expected project start 2025-01-01, got %v", result.ProjectStart)
	}
	if result.ProjectEnd == nil || !result.ProjectEnd.Equal(date(2025, 2, 28)) {
		t.Errorf("Expected project end 2025-02-28, got %v", result.ProjectEnd)
	}

	saved, err := repos.Project.FindByID(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("reload project: %v", err)
	}
	if saved.StartDate == nil || !saved.StartDate.Equal(date(2025, 1, 1)) {
		t.Errorf("Project start not persisted: %v", saved.StartDate)
	}
	if saved.EndDate == nil || !saved.EndDate.Equal(date(2025, 2, 28)) {
		t.Errorf("Project end not persisted: %v", saved.EndDate)
	}

	stored, err := repos.Project.ListPhases(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("list phases: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("Expected 2 phases, got %d", len(stored))
	}
	if stored[0].EndDate == nil || !stored[0].EndDate.Equal(date(2025, 1, 20)) {
		t.Errorf("Phase end not persisted: %v", stored[0].EndDate)
	}
}

func TestSaveAllPhasesPartialDates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db, nil)
	svc := NewPhaseService(repos.Project, zap.NewNop())

	project := testutil.SeedProject(t, db, "Partial dates", nil, nil)

	phase := entity.ProjectPhase{
		ID:        uuid.New().String()[:32],
		ProjectID: project.ID,
		PhaseKey:  "prepare",
		Name:      "prepare",
		SortOrder: 1,
		StartDate: testutil.DatePtr(2025, 1, 1),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := repos.Project.CreatePhase(context.Background(), &phase); err != nil {
		t.Fatalf("seed phase: %v", err)
	}

	result, err := svc.SaveAllPhases(context.Background(), project.ID, []entity.ProjectPhase{phase})
	if err != nil {
		t.Fatalf("SaveAllPhases failed: %v", err)
	}

	// With only a start date, both project bounds collapse onto it
	if result.ProjectStart == nil || !result.ProjectStart.Equal(date(2025, 1, 1)) {
		t.Errorf("Expected project start 2025-01-01, got %v", result.ProjectStart)
	}
	if result.ProjectEnd == nil || !result.ProjectEnd.Equal(date(2025, 1, 1)) {
		t.Errorf("Expected project end 2025-01-01, got %v", result.ProjectEnd)
	}
}

func TestSaveAllPhasesStopsOnFirstError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db, nil)
	svc := NewPhaseService(repos.Project, zap.NewNop())

	project := testutil.SeedProject(t, db, "Partial save", nil, nil)

	phases := make([]entity.ProjectPhase, 0, 3)
	for i, key := range []string{"prepare", "explore", "realize"} {
		phase := entity.ProjectPhase{
			ID:        uuid.New().String()[:32],
			ProjectID: project.ID,
			PhaseKey:  key,
			Name:      key,
			SortOrder: i + 1,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := repos.Project.CreatePhase(context.Background(), &phase); err != nil {
			t.Fatalf("seed phase: %v", err)
		}
		phases = append(phases, phase)
	}

	// Make the second phase's row reject updates
	trigger := fmt.Sprintf(`CREATE TRIGGER block_phase_update
		BEFORE UPDATE ON project_phases
		WHEN NEW.id = '%s'
		BEGIN
			SELECT RAISE(ABORT, 'phase row locked');
		END`, phases[1].ID)
	if err := db.Exec(trigger).Error; err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	phases[0].StartDate = testutil.DatePtr(2025, 1, 1)
	phases[0].EndDate = testutil.DatePtr(2025, 1, 20)
	phases[1].StartDate = testutil.DatePtr(2025, 1, 21)
	phases[1].EndDate = testutil.DatePtr(2025, 2, 10)
	phases[2].StartDate = testutil.DatePtr(2025, 2, 11)
	phases[2].EndDate = testutil.DatePtr(2025, 3, 1)

	result, err := svc.SaveAllPhases(context.Background(), project.ID, phases)
	if err == nil {
		t.Fatal("Expected error from failing mid-list save")
	}
	if result != nil {
		t.Errorf("Expected nil result on failure, got %+v", result)
	}
	if !strings.Contains(err.Error(), "save phase explore") {
		t.Errorf("Expected aggregate error naming the failed phase, got %v", err)
	}

	stored, err := repos.Project.ListPhases(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("list phases: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("Expected 3 phases, got %d", len(stored))
	}

	// First phase was written before the failure and stays written
	if stored[0].EndDate == nil || !stored[0].EndDate.Equal(date(2025, 1, 20)) {
		t.Errorf("Expected first phase end persisted, got %v", stored[0].EndDate)
	}
	// The loop stopped: the third phase was never saved
	if stored[2].StartDate != nil || stored[2].EndDate != nil {
		t.Errorf("Expected third phase untouched, got %v - %v", stored[2].StartDate, stored[2].EndDate)
	}

	// Project dates are only rewritten after all phases save
	saved, err := repos.Project.FindByID(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("reload project: %v", err)
	}
	if saved.StartDate != nil || saved.EndDate != nil {
		t.Errorf("Project dates must not be rewritten on failure, got %v - %v", saved.StartDate, saved.EndDate)
	}
}
