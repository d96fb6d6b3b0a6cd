package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/repository"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/sse"
	"go.uber.org/zap"
)

// 执行风险等级
const (
	RiskHigh   = "Alto"
	RiskMedium = "Medio"
	RiskLow    = "Bajo"
)

const statusSyncTimeout = 10 * time.Second

// GroupTasksByStatus 按状态分组任务。每个启用状态都有一列（可为空），
// 状态不在目录里的任务按其 status_id 自成一组，列内保持输入顺序。
func GroupTasksByStatus(tasks []entity.Task, statuses []entity.TaskStatus) map[string][]entity.Task {
	groups := make(map[string][]entity.Task, len(statuses))
	for _, st := range statuses {
		groups[st.ID] = []entity.Task{}
	}
	for _, t := range tasks {
		groups[t.StatusID] = append(groups[t.StatusID], t)
	}
	return groups
}

// BoardColumn 看板列（状态 + 列内任务）
type BoardColumn struct {
	Status entity.TaskStatus `json:"status"`
	Tasks  []entity.Task     `json:"tasks"`
}

// BoardMetrics 看板执行指标
type BoardMetrics struct {
	Total          int    `json:"total"`
	Completed      int    `json:"completed"`
	Blocked        int    `json:"blocked"`
	Overdue        int    `json:"overdue"`
	CompletionRate int    `json:"completion_rate"`
	RiskLevel      string `json:"risk_level"`
}

// ComputeBoardMetrics 从当前任务集合推导执行指标。
// 阻塞或逾期的存在直接判 Alto，不看完成率；其后完成率 <50 判 Medio，否则 Bajo。
func ComputeBoardMetrics(tasks []entity.Task, statuses []entity.TaskStatus, doneCode, blockedCode string, now time.Time) BoardMetrics {
	var doneID, blockedID string
	for _, st := range statuses {
		switch st.Code {
		case doneCode:
			doneID = st.ID
		case blockedCode:
			blockedID = st.ID
		}
	}

	today := truncateToDay(now)
	m := BoardMetrics{Total: len(tasks)}
	for _, t := range tasks {
		if t.StatusID == doneID {
			m.Completed++
			continue
		}
		if t.StatusID == blockedID {
			m.Blocked++
		}
		if t.DueDate != nil && truncateToDay(*t.DueDate).Before(today) {
			m.Overdue++
		}
	}

	if m.Total > 0 {
		m.CompletionRate = int(math.Round(float64(m.Completed) / float64(m.Total) * 100))
	}

	switch {
	case m.Blocked > 0 || m.Overdue > 0:
		m.RiskLevel = RiskHigh
	case m.CompletionRate < 50:
		m.RiskLevel = RiskMedium
	default:
		m.RiskLevel = RiskLow
	}
	return m
}

// StatusTransition 一次看板状态迁移
type StatusTransition struct {
	TaskID       string `json:"task_id"`
	FromStatusID string `json:"from_status_id"`
	ToStatusID   string `json:"to_status_id"`
}

// ApplyDrop 把拖放动作翻译成状态迁移。源列与目标列相同是空操作，
// 在任何状态变更或网络调用之前就短路掉。
func ApplyDrop(taskID, sourceStatusID, destStatusID string) (*StatusTransition, bool) {
	if sourceStatusID == destStatusID {
		return nil, false
	}
	return &StatusTransition{
		TaskID:       taskID,
		FromStatusID: sourceStatusID,
		ToStatusID:   destStatusID,
	}, true
}

// boardStore 单个项目的看板内存状态。状态迁移先在这里乐观生效，
// 异步持久化失败不回滚，只记入 failed 供前端展示同步状态。
type boardStore struct {
	mu       sync.Mutex
	tasks    []entity.Task
	statuses []entity.TaskStatus
	pending  map[string]bool   // task_id -> 持久化进行中
	failed   map[string]string // task_id -> 最近一次同步失败信息
}

func newBoardStore() *boardStore {
	return &boardStore{
		pending: make(map[string]bool),
		failed:  make(map[string]string),
	}
}

// loadTasks 装载任务，保留仍在等待持久化的本地状态
func (b *boardStore) loadTasks(tasks []entity.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()

	local := make(map[string]string)
	for _, t := range b.tasks {
		if b.pending[t.ID] || b.failed[t.ID] != "" {
			local[t.ID] = t.StatusID
		}
	}

	b.tasks = make([]entity.Task, len(tasks))
	copy(b.tasks, tasks)
	for i := range b.tasks {
		if statusID, ok := local[b.tasks[i].ID]; ok {
			b.tasks[i].StatusID = statusID
		}
	}
}

func (b *boardStore) loadStatuses(statuses []entity.TaskStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = make([]entity.TaskStatus, len(statuses))
	copy(b.statuses, statuses)
}

// setStatus 乐观应用状态迁移，返回任务当前状态与是否找到
func (b *boardStore) setStatus(taskID, statusID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.tasks {
		if b.tasks[i].ID == taskID {
			from := b.tasks[i].StatusID
			b.tasks[i].StatusID = statusID
			b.pending[taskID] = true
			delete(b.failed, taskID)
			return from, true
		}
	}
	return "", false
}

func (b *boardStore) resolveSync(taskID string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, taskID)
	if err != nil {
		b.failed[taskID] = err.Error()
	}
}

func (b *boardStore) snapshot() ([]entity.Task, []entity.TaskStatus, []string, map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tasks := make([]entity.Task, len(b.tasks))
	copy(tasks, b.tasks)
	statuses := make([]entity.TaskStatus, len(b.statuses))
	copy(statuses, b.statuses)

	pending := make([]string, 0, len(b.pending))
	for id := range b.pending {
		pending = append(pending, id)
	}
	failed := make(map[string]string, len(b.failed))
	for id, msg := range b.failed {
		failed[id] = msg
	}
	return tasks, statuses, pending, failed
}

// BoardService 任务看板服务
type BoardService struct {
	taskRepo    *repository.TaskRepository
	catalogRepo *repository.CatalogRepository
	logger      *zap.Logger

	mu     sync.Mutex
	stores map[string]*boardStore

	// 异步执行入口，测试中替换为同步执行
	runAsync func(fn func())
}

// NewBoardService 创建看板服务
func NewBoardService(taskRepo *repository.TaskRepository, catalogRepo *repository.CatalogRepository, logger *zap.Logger) *BoardService {
	return &BoardService{
		taskRepo:    taskRepo,
		catalogRepo: catalogRepo,
		logger:      logger,
		stores:      make(map[string]*boardStore),
		runAsync:    func(fn func()) { go fn() },
	}
}

func (s *BoardService) store(projectID string) *boardStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[projectID]
	if !ok {
		st = newBoardStore()
		s.stores[projectID] = st
	}
	return st
}

// dropStore 释放项目的看板内存状态，项目删除时调用
func (s *BoardService) dropStore(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stores, projectID)
}

// Board 看板视图
type Board struct {
	Columns     []BoardColumn     `json:"columns"`
	Metrics     BoardMetrics      `json:"metrics"`
	PendingSync []string          `json:"pending_sync"`
	FailedSync  map[string]string `json:"failed_sync"`
}

// GetBoard 装载并返回项目看板（列按 order_index 排序）
func (s *BoardService) GetBoard(ctx context.Context, projectID string) (*Board, error) {
	statuses, err := s.catalogRepo.ListStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load statuses: %w", err)
	}
	tasks, err := s.taskRepo.ListByProject(ctx, projectID, map[string]interface{}{})
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	st := s.store(projectID)
	st.loadStatuses(statuses)
	st.loadTasks(tasks)

	return s.boardView(st), nil
}

func (s *BoardService) boardView(st *boardStore) *Board {
	tasks, statuses, pending, failed := st.snapshot()

	groups := GroupTasksByStatus(tasks, statuses)
	columns := make([]BoardColumn, 0, len(statuses))
	for _, status := range statuses {
		columns = append(columns, BoardColumn{
			Status: status,
			Tasks:  groups[status.ID],
		})
	}

	return &Board{
		Columns:     columns,
		Metrics:     ComputeBoardMetrics(tasks, statuses, entity.StatusCodeDone, entity.StatusCodeBlocked, time.Now()),
		PendingSync: pending,
		FailedSync:  failed,
	}
}

// SetTaskStatus 看板状态迁移：本地乐观生效后异步持久化。
// 目标状态与当前相同时直接返回，不产生任何变更或写库调用。
func (s *BoardService) SetTaskStatus(ctx context.Context, taskID, newStatusID string) error {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("find task: %w", err)
	}

	transition, ok := ApplyDrop(taskID, task.StatusID, newStatusID)
	if !ok {
		return nil
	}

	st := s.store(task.ProjectID)
	st.setStatus(taskID, transition.ToStatusID)

	projectID := task.ProjectID
	s.runAsync(func() {
		s.persistStatus(projectID, transition)
	})

	return nil
}

// persistStatus 异步写库。失败只记录并通知，本地乐观状态保持不变，
// 直到下一次整板重载才与远端对账。
func (s *BoardService) persistStatus(projectID string, transition *StatusTransition) {
	ctx, cancel := context.WithTimeout(context.Background(), statusSyncTimeout)
	defer cancel()

	err := s.taskRepo.UpdateStatus(ctx, transition.TaskID, transition.ToStatusID)
	s.store(projectID).resolveSync(transition.TaskID, err)

	if err != nil {
		s.logger.Error("Task status sync failed",
			zap.String("project_id", projectID),
			zap.String("task_id", transition.TaskID),
			zap.String("to_status", transition.ToStatusID),
			zap.Error(err),
		)
		sse.PublishTaskUpdate(projectID, transition.TaskID, "status_sync_failed")
		return
	}

	sse.PublishTaskUpdate(projectID, transition.TaskID, "status_change")
}
