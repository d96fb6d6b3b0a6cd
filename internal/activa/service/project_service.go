package service

import (
	"context"
	"fmt"
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/repository"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/sse"
	"github.com/google/uuid"
)

// ProjectService 项目服务
type ProjectService struct {
	projectRepo *repository.ProjectRepository
	taskRepo    *repository.TaskRepository
	catalogRepo *repository.CatalogRepository
	board       *BoardService
}

// NewProjectService 创建项目服务
func NewProjectService(
	projectRepo *repository.ProjectRepository,
	taskRepo *repository.TaskRepository,
	catalogRepo *repository.CatalogRepository,
	board *BoardService,
) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		catalogRepo: catalogRepo,
		board:       board,
	}
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	ManagerID   string     `json:"manager_id"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// UpdateProjectRequest 更新项目请求
type UpdateProjectRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ManagerID   string     `json:"manager_id"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// ProjectListResult 项目列表结果
type ProjectListResult struct {
	Items      []entity.Project `json:"items"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// ListProjects 获取项目列表
func (s *ProjectService) ListProjects(ctx context.Context, page, pageSize int, filters map[string]interface{}) (*ProjectListResult, error) {
	projects, total, err := s.projectRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &ProjectListResult{
		Items:      projects,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetProject 获取项目详情
func (s *ProjectService) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}
	return project, nil
}

// CreateProject 创建项目并按 Activate 目录播种空白阶段实例
func (s *ProjectService) CreateProject(ctx context.Context, userID string, req *CreateProjectRequest) (*entity.Project, error) {
	code, err := s.projectRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	managerID := req.ManagerID
	if managerID == "" {
		managerID = userID
	}

	now := time.Now()
	project := &entity.Project{
		ID:          uuid.New().String()[:32],
		Code:        code,
		Name:        req.Name,
		Description: req.Description,
		Status:      entity.ProjectStatusPlanning,
		ManagerID:   managerID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	// 阶段实例只建一次，日期留空，由用户手填或级联预填
	catalog, err := s.catalogRepo.ListPhases(ctx)
	if err != nil {
		return nil, fmt.Errorf("load phase catalog: %w", err)
	}
	for _, p := range catalog {
		phase := &entity.ProjectPhase{
			ID:        uuid.New().String()[:32],
			ProjectID: project.ID,
			PhaseKey:  p.PhaseKey,
			Name:      p.Name,
			SortOrder: p.SortOrder,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.projectRepo.CreatePhase(ctx, phase); err != nil {
			return nil, fmt.Errorf("create phase %s: %w", p.PhaseKey, err)
		}
	}

	go sse.PublishProjectUpdate(project.ID, "created")

	return project, nil
}

// UpdateProject 更新项目
func (s *ProjectService) UpdateProject(ctx context.Context, id string, req *UpdateProjectRequest) (*entity.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}

	if req.Name != "" {
		project.Name = req.Name
	}
	if req.Description != "" {
		project.Description = req.Description
	}
	if req.ManagerID != "" {
		project.ManagerID = req.ManagerID
	}
	if req.Status != "" {
		project.Status = req.Status
	}
	if req.StartDate != nil {
		project.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		project.EndDate = req.EndDate
	}

	project.UpdatedAt = time.Now()

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	return project, nil
}

// DeleteProject 删除项目并释放其看板内存状态
func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return err
	}
	if s.board != nil {
		s.board.dropStore(id)
	}
	return nil
}

// ListPhases 获取项目阶段实例列表
func (s *ProjectService) ListPhases(ctx context.Context, projectID string) ([]entity.ProjectPhase, error) {
	return s.projectRepo.ListPhases(ctx, projectID)
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Title            string     `json:"title" binding:"required"`
	Description      string     `json:"description"`
	StatusID         string     `json:"status_id"`
	ActivatePhaseKey string     `json:"activate_phase_key"`
	Priority         string     `json:"priority"`
	AssigneeID       string     `json:"assignee_id"`
	PlannedStartDate *time.Time `json:"planned_start_date"`
	PlannedEndDate   *time.Time `json:"planned_end_date"`
	DueDate          *time.Time `json:"due_date"`
}

// UpdateTaskRequest 更新任务请求
type UpdateTaskRequest struct {
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Priority         string     `json:"priority"`
	AssigneeID       string     `json:"assignee_id"`
	PlannedStartDate *time.Time `json:"planned_start_date"`
	PlannedEndDate   *time.Time `json:"planned_end_date"`
	DueDate          *time.Time `json:"due_date"`
}

// TaskListResult 任务列表结果
type TaskListResult struct {
	Items      []entity.Task `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

// ListTasks 获取任务列表
func (s *ProjectService) ListTasks(ctx context.Context, projectID string, page, pageSize int, filters map[string]interface{}) (*TaskListResult, error) {
	filters["project_id"] = projectID
	tasks, total, err := s.taskRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &TaskListResult{
		Items:      tasks,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetTask 获取任务详情
func (s *ProjectService) GetTask(ctx context.Context, id string) (*entity.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return task, nil
}

// CreateTask 创建任务（手工创建，非模板生成）
func (s *ProjectService) CreateTask(ctx context.Context, projectID, userID string, req *CreateTaskRequest) (*entity.Task, error) {
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}

	statusID := req.StatusID
	if statusID == "" {
		initial, err := s.catalogRepo.FindStatusByCode(ctx, entity.StatusCodeTodo)
		if err != nil {
			return nil, fmt.Errorf("resolve initial status: %w", err)
		}
		statusID = initial.ID
	}

	priority := req.Priority
	if priority == "" {
		priority = entity.TaskPriorityMedium
	}

	var phaseKey *string
	if req.ActivatePhaseKey != "" {
		phaseKey = &req.ActivatePhaseKey
	}
	var assigneeID *string
	if req.AssigneeID != "" {
		assigneeID = &req.AssigneeID
	}

	dueDate := req.DueDate
	if dueDate == nil {
		dueDate = req.PlannedEndDate
	}

	now := time.Now()
	task := &entity.Task{
		ID:                  uuid.New().String()[:32],
		ProjectID:           projectID,
		Title:               req.Title,
		Description:         req.Description,
		StatusID:            statusID,
		ActivatePhaseKey:    phaseKey,
		PlannedStartDate:    req.PlannedStartDate,
		PlannedEndDate:      req.PlannedEndDate,
		DueDate:             dueDate,
		Priority:            priority,
		AssigneeID:          assigneeID,
		IsTemplateGenerated: false,
		CreatedBy:           userID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return task, nil
}

// UpdateTask 更新任务
func (s *ProjectService) UpdateTask(ctx context.Context, id string, req *UpdateTaskRequest) (*entity.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}

	if req.Title != "" {
		task.Title = req.Title
	}
	if req.Description != "" {
		task.Description = req.Description
	}
	if req.Priority != "" {
		task.Priority = req.Priority
	}
	if req.AssigneeID != "" {
		task.AssigneeID = &req.AssigneeID
	}
	if req.PlannedStartDate != nil {
		task.PlannedStartDate = req.PlannedStartDate
	}
	if req.PlannedEndDate != nil {
		task.PlannedEndDate = req.PlannedEndDate
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}

	task.UpdatedAt = time.Now()

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	return task, nil
}

// DeleteTask 删除任务
func (s *ProjectService) DeleteTask(ctx context.Context, id string) error {
	return s.taskRepo.Delete(ctx, id)
}
