package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/repository"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/sse"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 计划生成错误
var (
	ErrInvalidDateRange     = errors.New("project start date must be before end date")
	ErrInitialStatusMissing = errors.New("initial task status not found")
	ErrPlanAlreadyExists    = errors.New("a generated plan already exists for this project")
)

// PlanService 阶段/活动计划服务
type PlanService struct {
	projectRepo *repository.ProjectRepository
	taskRepo    *repository.TaskRepository
	catalogRepo *repository.CatalogRepository
	logger      *zap.Logger
}

// NewPlanService 创建计划服务
func NewPlanService(
	projectRepo *repository.ProjectRepository,
	taskRepo *repository.TaskRepository,
	catalogRepo *repository.CatalogRepository,
	logger *zap.Logger,
) *PlanService {
	return &PlanService{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		catalogRepo: catalogRepo,
		logger:      logger,
	}
}

// PhaseCatalog 获取 Activate 阶段目录
func (s *PlanService) PhaseCatalog(ctx context.Context) ([]entity.ActivatePhase, error) {
	return s.catalogRepo.ListPhases(ctx)
}

// PhaseWindow 计算出来的阶段时间窗
type PhaseWindow struct {
	PhaseKey  string `json:"phase_key"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ComputePhaseWindows 按权重切分项目区间为各阶段时间窗。
// 起止日期缺失或 start >= end 时返回空列表（非错误）。
func ComputePhaseWindows(projectStart, projectEnd *time.Time, phases []entity.ActivatePhase) []PhaseWindow {
	if projectStart == nil || projectEnd == nil {
		return []PhaseWindow{}
	}
	start := truncateToDay(*projectStart)
	end := truncateToDay(*projectEnd)
	if !start.Before(end) {
		return []PhaseWindow{}
	}

	weights := make([]float64, len(phases))
	for i, p := range phases {
		weights[i] = p.WeightPercent
	}

	windows := partitionByWeight(start, end, weights)

	result := make([]PhaseWindow, len(phases))
	for i, p := range phases {
		result[i] = PhaseWindow{
			PhaseKey:  p.PhaseKey,
			Name:      p.Name,
			SortOrder: p.SortOrder,
			StartDate: toISODate(windows[i].Start),
			EndDate:   toISODate(windows[i].End),
		}
	}
	return result
}

// placeActivity 按模板的阶段内偏移和默认工期计算活动起止日期。
// 工期为 0 表示里程碑（起止同日），终点不会超出阶段窗口。
func placeActivity(window DateWindow, tpl entity.ActivityTemplate) (time.Time, time.Time) {
	offset := 0.0
	if tpl.OffsetPercentInPhase != nil {
		offset = *tpl.OffsetPercentInPhase
	}
	span := window.End.Sub(window.Start)
	start := window.Start.Add(time.Duration(math.Round(float64(span) * offset / 100)))

	end := start
	if tpl.DefaultDurationDays > 0 {
		end = addDays(start, tpl.DefaultDurationDays)
	}
	end = clampToWindow(end, window.End)

	return start, end
}

// GeneratePlanResult 计划生成结果
type GeneratePlanResult struct {
	Created int `json:"created"`
}

// GeneratePlan 为新设定起止日期的项目一次性生成任务计划。
// 项目已存在模板生成的任务时拒绝重复生成；批量写入整体成功或整体失败。
func (s *PlanService) GeneratePlan(ctx context.Context, projectID, userID string) (*GeneratePlanResult, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}

	if project.StartDate == nil || project.EndDate == nil {
		return nil, ErrInvalidDateRange
	}
	if !truncateToDay(*project.StartDate).Before(truncateToDay(*project.EndDate)) {
		return nil, ErrInvalidDateRange
	}

	existing, err := s.taskRepo.CountGenerated(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("check existing plan: %w", err)
	}
	if existing > 0 {
		return nil, ErrPlanAlreadyExists
	}

	phases, err := s.catalogRepo.ListPhases(ctx)
	if err != nil {
		return nil, fmt.Errorf("load phase catalog: %w", err)
	}
	templates, err := s.catalogRepo.ListActiveTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load template catalog: %w", err)
	}

	// 空目录不是错误：空计划是合法结果
	if len(phases) == 0 || len(templates) == 0 {
		return &GeneratePlanResult{Created: 0}, nil
	}

	initial, err := s.catalogRepo.FindStatusByCode(ctx, entity.StatusCodeTodo)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInitialStatusMissing
		}
		return nil, fmt.Errorf("find initial status: %w", err)
	}

	windows := ComputePhaseWindows(project.StartDate, project.EndDate, phases)
	windowByKey := make(map[string]DateWindow, len(windows))
	for _, w := range windows {
		start, _ := time.Parse("2006-01-02", w.StartDate)
		end, _ := time.Parse("2006-01-02", w.EndDate)
		windowByKey[w.PhaseKey] = DateWindow{Start: start, End: end}
	}

	now := time.Now()
	tasks := make([]entity.Task, 0, len(templates))
	for _, tpl := range templates {
		window, ok := windowByKey[tpl.ActivatePhaseKey]
		if !ok {
			continue
		}

		start, end := placeActivity(window, tpl)
		phaseKey := tpl.ActivatePhaseKey
		startDate, endDate := start, end
		tasks = append(tasks, entity.Task{
			ID:                  uuid.New().String()[:32],
			ProjectID:           projectID,
			Title:               tpl.Name,
			StatusID:            initial.ID,
			ActivatePhaseKey:    &phaseKey,
			PlannedStartDate:    &startDate,
			PlannedEndDate:      &endDate,
			DueDate:             &endDate,
			Priority:            entity.TaskPriorityMedium,
			IsTemplateGenerated: true,
			CreatedBy:           userID,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
	}

	if err := s.taskRepo.CreateBatch(ctx, tasks); err != nil {
		// 单条批量语句失败时不假定有部分行落库，也不自动重试
		return nil, fmt.Errorf("bulk insert plan tasks: %w", err)
	}

	s.logger.Info("Generated initial plan",
		zap.String("project_id", projectID),
		zap.Int("created", len(tasks)),
	)

	go sse.PublishProjectUpdate(projectID, "plan_generated")

	return &GeneratePlanResult{Created: len(tasks)}, nil
}
