package service

import (
	"context"
	"testing"
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/repository"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func statusFixtures() []entity.TaskStatus {
	return []entity.TaskStatus{
		{ID: "st-todo", Code: entity.StatusCodeTodo, Name: "Por hacer", OrderIndex: 1, IsActive: true},
		{ID: "st-prog", Code: entity.StatusCodeInProgress, Name: "En progreso", OrderIndex: 2, IsActive: true},
		{ID: "st-block", Code: entity.StatusCodeBlocked, Name: "Bloqueado", OrderIndex: 3, IsActive: true},
		{ID: "st-done", Code: entity.StatusCodeDone, Name: "Completado", OrderIndex: 5, IsActive: true},
	}
}

func TestGroupTasksByStatus(t *testing.T) {
	statuses := statusFixtures()
	tasks := []entity.Task{
		{ID: "t1", StatusID: "st-todo"},
		{ID: "t2", StatusID: "st-done"},
		{ID: "t3", StatusID: "st-todo"},
		{ID: "t4", StatusID: "st-ghost"}, // status missing from catalog
	}

	groups := GroupTasksByStatus(tasks, statuses)

	// Every catalog status has a column, even when empty
	for _, st := range statuses {
		if _, ok := groups[st.ID]; !ok {
			t.Errorf("Missing column for status %s", st.Code)
		}
	}
	if len(groups["st-prog"]) != 0 {
		t.Errorf("Expected empty in-progress column, got %d tasks", len(groups["st-prog"]))
	}

	// Column order follows input order
	todo := groups["st-todo"]
	if len(todo) != 2 || todo[0].ID != "t1" || todo[1].ID != "t3" {
		t.Errorf("Expected todo column [t1 t3], got %v", todo)
	}

	// Unknown statuses self-group rather than disappear
	if len(groups["st-ghost"]) != 1 || groups["st-ghost"][0].ID != "t4" {
		t.Errorf("Task with unknown status lost: %v", groups["st-ghost"])
	}
}

func TestComputeBoardMetricsRiskLevels(t *testing.T) {
	statuses := statusFixtures()
	now := date(2025, 6, 1)

	cases := []struct {
		name  string
		tasks []entity.Task
		want  BoardMetrics
	}{
		{
			name:  "empty board",
			tasks: nil,
			want:  BoardMetrics{RiskLevel: RiskMedium},
		},
		{
			name: "blocked dominates high completion",
			tasks: []entity.Task{
				{ID: "t1", StatusID: "st-done"},
				{ID: "t2", StatusID: "st-done"},
				{ID: "t3", StatusID: "st-done"},
				{ID: "t4", StatusID: "st-done"},
				{ID: "t5", StatusID: "st-done"},
				{ID: "t6", StatusID: "st-done"},
				{ID: "t7", StatusID: "st-done"},
				{ID: "t8", StatusID: "st-done"},
				{ID: "t9", StatusID: "st-done"},
				{ID: "t10", StatusID: "st-block"},
			},
			want: BoardMetrics{Total: 10, Completed: 9, Blocked: 1, CompletionRate: 90, RiskLevel: RiskHigh},
		},
		{
			name: "overdue alone is high",
			tasks: []entity.Task{
				{ID: "t1", StatusID: "st-done"},
				{ID: "t2", StatusID: "st-prog", DueDate: testutil.DatePtr(2025, 5, 20)},
			},
			want: BoardMetrics{Total: 2, Completed: 1, Overdue: 1, CompletionRate: 50, RiskLevel: RiskHigh},
		},
		{
			name: "low completion is medium",
			tasks: []entity.Task{
				{ID: "t1", StatusID: "st-done"},
				{ID: "t2", StatusID: "st-prog"},
				{ID: "t3", StatusID: "st-todo"},
			},
			want: BoardMetrics{Total: 3, Completed: 1, CompletionRate: 33, RiskLevel: RiskMedium},
		},
		{
			name: "healthy board is low",
			tasks: []entity.Task{
				{ID: "t1", StatusID: "st-done"},
				{ID: "t2", StatusID: "st-done"},
				{ID: "t3", StatusID: "st-prog", DueDate: testutil.DatePtr(2025, 7, 1)},
			},
			want: BoardMetrics{Total: 3, Completed: 2, CompletionRate: 67, RiskLevel: RiskLow},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeBoardMetrics(tc.tasks, statuses, entity.StatusCodeDone, entity.StatusCodeBlocked, now)
			if got != tc.want {
				t.Errorf("Expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestComputeBoardMetricsDoneNeverOverdue(t *testing.T) {
	statuses := statusFixtures()
	now := date(2025, 6, 1)

	// A completed task past its due date counts neither as overdue nor blocked
	tasks := []entity.Task{
		{ID: "t1", StatusID: "st-done", DueDate: testutil.DatePtr(2025, 5, 1)},
	}

	got := ComputeBoardMetrics(tasks, statuses, entity.StatusCodeDone, entity.StatusCodeBlocked, now)
	if got.Overdue != 0 {
		t.Errorf("Done task counted as overdue: %+v", got)
	}
	if got.RiskLevel != RiskLow {
		t.Errorf("Expected Bajo risk, got %s", got.RiskLevel)
	}
}

func TestComputeBoardMetricsDueTodayNotOverdue(t *testing.T) {
	statuses := statusFixtures()
	now := date(2025, 6, 1).Add(15 * time.Hour) // mid-day

	tasks := []entity.Task{
		{ID: "t1", StatusID: "st-prog", DueDate: testutil.DatePtr(2025, 6, 1)},
	}

	got := ComputeBoardMetrics(tasks, statuses, entity.StatusCodeDone, entity.StatusCodeBlocked, now)
	if got.Overdue != 0 {
		t.Errorf("Task due today counted as overdue: %+v", got)
	}
}

func TestApplyDrop(t *testing.T) {
	transition, ok := ApplyDrop("t1", "st-todo", "st-prog")
	if !ok {
		t.Fatal("Expected transition for cross-column drop")
	}
	if transition.FromStatusID != "st-todo" || transition.ToStatusID != "st-prog" {
		t.Errorf("Unexpected transition %+v", transition)
	}

	transition, ok = ApplyDrop("t1", "st-todo", "st-todo")
	if ok || transition != nil {
		t.Errorf("Same-column drop must be a no-op, got %+v", transition)
	}
}

type boardTestEnv struct {
	db       *gorm.DB
	repos    *repository.Repositories
	svc      *BoardService
	project  *entity.Project
	statuses []entity.TaskStatus
}

func setupBoardTest(t *testing.T) *boardTestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db, nil)
	svc := NewBoardService(repos.Task, repos.Catalog, zap.NewNop())
	// Run persistence synchronously so assertions see the final state
	svc.runAsync = func(fn func()) { fn() }

	statuses := testutil.SeedStatusCatalog(t, db)
	project := testutil.SeedProject(t, db, "Board test",
		testutil.DatePtr(2025, 1, 1), testutil.DatePtr(2025, 7, 1))
	return &boardTestEnv{db: db, repos: repos, svc: svc, project: project, statuses: statuses}
}

func statusByCode(statuses []entity.TaskStatus, code string) entity.TaskStatus {
	for _, st := range statuses {
		if st.Code == code {
			return st
		}
	}
	return entity.TaskStatus{}
}

func TestGetBoard(t *testing.T) {
	env := setupBoardTest(t)

	todo := statusByCode(env.statuses, entity.StatusCodeTodo)
	done := statusByCode(env.statuses, entity.StatusCodeDone)

	testutil.SeedTask(t, env.db, env.project.ID, "Task 1", todo.ID)
	testutil.SeedTask(t, env.db, env.project.ID, "Task 2", done.ID)

	board, err := env.svc.GetBoard(context.Background(), env.project.ID)
	if err != nil {
		t.Fatalf("GetBoard failed: %v", err)
	}

	if len(board.Columns) != len(env.statuses) {
		t.Fatalf("Expected %d columns, got %d", len(env.statuses), len(board.Columns))
	}
	// Columns ordered by status order_index
	for i := 1; i < len(board.Columns); i++ {
		if board.Columns[i].Status.OrderIndex < board.Columns[i-1].Status.OrderIndex {
			t.Errorf("Columns out of order at %d", i)
		}
	}
	if board.Metrics.Total != 2 || board.Metrics.Completed != 1 {
		t.Errorf("Unexpected metrics %+v", board.Metrics)
	}
	if len(board.PendingSync) != 0 || len(board.FailedSync) != 0 {
		t.Errorf("Fresh board should have no sync state: %v %v", board.PendingSync, board.FailedSync)
	}
}

func TestSetTaskStatusPersists(t *testing.T) {
	env := setupBoardTest(t)

	todo := statusByCode(env.statuses, entity.StatusCodeTodo)
	prog := statusByCode(env.statuses, entity.StatusCodeInProgress)

	task := testutil.SeedTask(t, env.db, env.project.ID, "Move me", todo.ID)

	if _, err := env.svc.GetBoard(context.Background(), env.project.ID); err != nil {
		t.Fatalf("GetBoard failed: %v", err)
	}

	if err := env.svc.SetTaskStatus(context.Background(), task.ID, prog.ID); err != nil {
		t.Fatalf("SetTaskStatus failed: %v", err)
	}

	// Persisted state reflects the move
	reloaded, err := env.repos.Task.FindByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if reloaded.StatusID != prog.ID {
		t.Errorf("Expected status %s persisted, got %s", prog.ID, reloaded.StatusID)
	}

	// Board view agrees and the sync marker is cleared
	board, err := env.svc.GetBoard(context.Background(), env.project.ID)
	if err != nil {
		t.Fatalf("GetBoard failed: %v", err)
	}
	if len(board.PendingSync) != 0 {
		t.Errorf("Expected no pending sync after completion, got %v", board.PendingSync)
	}
}

func TestSetTaskStatusNoOp(t *testing.T) {
	env := setupBoardTest(t)

	todo := statusByCode(env.statuses, entity.StatusCodeTodo)
	task := testutil.SeedTask(t, env.db, env.project.ID, "Stay put", todo.ID)

	persistCalls := 0
	env.svc.runAsync = func(fn func()) {
		persistCalls++
		fn()
	}

	if err := env.svc.SetTaskStatus(context.Background(), task.ID, todo.ID); err != nil {
		t.Fatalf("No-op SetTaskStatus returned error: %v", err)
	}
	if persistCalls != 0 {
		t.Errorf("No-op drop must not trigger persistence, got %d calls", persistCalls)
	}
}

func TestDeleteProjectDropsBoardStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db, nil)
	services := NewServices(repos, zap.NewNop())

	testutil.SeedStatusCatalog(t, db)
	project := testutil.SeedProject(t, db, "Short lived", nil, nil)

	if _, err := services.Board.GetBoard(context.Background(), project.ID); err != nil {
		t.Fatalf("GetBoard failed: %v", err)
	}
	services.Board.mu.Lock()
	_, ok := services.Board.stores[project.ID]
	services.Board.mu.Unlock()
	if !ok {
		t.Fatal("Expected board store for loaded project")
	}

	if err := services.Project.DeleteProject(context.Background(), project.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}

	services.Board.mu.Lock()
	_, ok = services.Board.stores[project.ID]
	services.Board.mu.Unlock()
	if ok {
		t.Error("Expected board store released after project delete")
	}
}

func taskInColumn(board *Board, statusID, taskID string) bool {
	for _, col := range board.Columns {
		if col.Status.ID != statusID {
			continue
		}
		for _, task := range col.Tasks {
			if task.ID == taskID {
				return true
			}
		}
	}
	return false
}

func TestSetTaskStatusFailureKeepsOptimisticState(t *testing.T) {
	env := setupBoardTest(t)

	todo := statusByCode(env.statuses, entity.StatusCodeTodo)
	prog := statusByCode(env.statuses, entity.StatusCodeInProgress)

	task := testutil.SeedTask(t, env.db, env.project.ID, "Flaky sync", todo.ID)

	if _, err := env.svc.GetBoard(context.Background(), env.project.ID); err != nil {
		t.Fatalf("GetBoard failed: %v", err)
	}

	// Hide the tasks table for the duration of the write so it fails
	env.svc.runAsync = func(fn func()) {
		if err := env.db.Exec("ALTER TABLE tasks RENAME TO tasks_hidden").Error; err != nil {
			t.Fatalf("hide table: %v", err)
		}
		fn()
		if err := env.db.Exec("ALTER TABLE tasks_hidden RENAME TO tasks").Error; err != nil {
			t.Fatalf("restore table: %v", err)
		}
	}

	// The transition itself succeeds: persistence failure is reported, not returned
	if err := env.svc.SetTaskStatus(context.Background(), task.ID, prog.ID); err != nil {
		t.Fatalf("SetTaskStatus failed: %v", err)
	}

	board := env.svc.boardView(env.svc.store(env.project.ID))
	msg, ok := board.FailedSync[task.ID]
	if !ok || msg == "" {
		t.Fatalf("Expected failed sync entry for %s, got %v", task.ID, board.FailedSync)
	}
	// Optimistic local state is not rolled back
	if !taskInColumn(board, prog.ID, task.ID) {
		t.Error("Task must keep its optimistic status after a failed sync")
	}

	// The store is out of sync with the row on purpose
	reloaded, err := env.repos.Task.FindByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if reloaded.StatusID != todo.ID {
		t.Errorf("Expected stored status unchanged, got %s", reloaded.StatusID)
	}

	// A reload keeps the local status of failed tasks and the failure marker
	board, err = env.svc.GetBoard(context.Background(), env.project.ID)
	if err != nil {
		t.Fatalf("GetBoard failed: %v", err)
	}
	if !taskInColumn(board, prog.ID, task.ID) {
		t.Error("Reload must preserve the local status of a failed task")
	}
	if board.FailedSync[task.ID] == "" {
		t.Error("Reload must preserve the failure marker")
	}

	// Retrying the transition clears the marker once the write succeeds
	env.svc.runAsync = func(fn func()) { fn() }
	if err := env.svc.SetTaskStatus(context.Background(), task.ID, prog.ID); err != nil {
		t.Fatalf("Retry SetTaskStatus failed: %v", err)
	}

	board = env.svc.boardView(env.svc.store(env.project.ID))
	if len(board.FailedSync) != 0 {
		t.Errorf("Expected failure marker cleared after retry, got %v", board.FailedSync)
	}
	reloaded, err = env.repos.Task.FindByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if reloaded.StatusID != prog.ID {
		t.Errorf("Expected retried status persisted, got %s", reloaded.StatusID)
	}
}
