package handler

import (
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/service"
	"github.com/gin-gonic/gin"
)

// ProjectHandler 项目处理器（含阶段与任务接口）
type ProjectHandler struct {
	svc      *service.ProjectService
	phaseSvc *service.PhaseService
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(svc *service.ProjectService, phaseSvc *service.PhaseService) *ProjectHandler {
	return &ProjectHandler{svc: svc, phaseSvc: phaseSvc}
}

// ============================================================
// 项目相关接口
// ============================================================

// ListProjects 获取项目列表
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	page, pageSize := GetPagination(c)

	filters := map[string]interface{}{
		"keyword":    c.Query("keyword"),
		"status":     c.Query("status"),
		"manager_id": c.Query("manager_id"),
	}

	result, err := h.svc.ListProjects(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, result)
}

// GetProject 获取项目详情
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Project ID is required")
		return
	}

	project, err := h.svc.GetProject(c.Request.Context(), id)
	if err != nil {
		NotFound(c, "Project not found")
		return
	}

	Success(c, project)
}

// CreateProject 创建项目
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req service.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID := GetUserID(c)
	project, err := h.svc.CreateProject(c.Request.Context(), userID, &req)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Created(c, project)
}

// UpdateProject 更新项目
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Project ID is required")
		return
	}

	var req service.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	project, err := h.svc.UpdateProject(c.Request.Context(), id, &req)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, project)
}

// DeleteProject 删除项目
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteProject(c.Request.Context(), id); err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, nil)
}

// ============================================================
// 阶段相关接口
// ============================================================

// ListPhases 获取项目阶段实例列表
func (h *ProjectHandler) ListPhases(c *gin.Context) {
	projectID := c.Param("id")
	phases, err := h.svc.ListPhases(c.Request.Context(), projectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"items": phases})
}

// PhaseEditRequest 阶段编辑预填请求
type PhaseEditRequest struct {
	PhaseID   string     `json:"phase_id" binding:"required"`
	EndDate   time.Time  `json:"end_date" binding:"required"`
	StartDate *time.Time `json:"start_date"`
}

// PreviewPhaseEdit 阶段日期级联预填（纯计算，不落库）
func (h *ProjectHandler) PreviewPhaseEdit(c *gin.Context) {
	projectID := c.Param("id")

	var req PhaseEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	phases, err := h.svc.ListPhases(c.Request.Context(), projectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	result := service.PropagatePhaseEdit(phases, req.PhaseID, req.EndDate, req.StartDate)
	Success(c, gin.H{"items": result})
}

// SavePhasesRequest 批量保存阶段请求
type SavePhasesRequest struct {
	Phases []entity.ProjectPhase `json:"phases" binding:"required"`
}

// SaveAllPhases 批量保存项目阶段并回写项目起止日期
func (h *ProjectHandler) SaveAllPhases(c *gin.Context) {
	projectID := c.Param("id")

	var req SavePhasesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.phaseSvc.SaveAllPhases(c.Request.Context(), projectID, req.Phases)
	if err != nil {
		InternalError(c, "Failed to save phases: "+err.Error())
		return
	}

	Success(c, result)
}

// ============================================================
// 任务相关接口
// ============================================================

// ListTasks 获取项目任务列表
func (h *ProjectHandler) ListTasks(c *gin.Context) {
	projectID := c.Param("id")
	page, pageSize := GetPagination(c)

	filters := map[string]interface{}{
		"status_id": c.Query("status_id"),
		"priority":  c.Query("priority"),
	}

	result, err := h.svc.ListTasks(c.Request.Context(), projectID, page, pageSize, filters)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, result)
}

// GetTask 获取任务详情
func (h *ProjectHandler) GetTask(c *gin.Context) {
	id := c.Param("id")
	task, err := h.svc.GetTask(c.Request.Context(), id)
	if err != nil {
		NotFound(c, "Task not found")
		return
	}
	Success(c, task)
}

// CreateTask 创建任务
func (h *ProjectHandler) CreateTask(c *gin.Context) {
	projectID := c.Param("id")

	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID := GetUserID(c)
	task, err := h.svc.CreateTask(c.Request.Context(), projectID, userID, &req)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Created(c, task)
}

// UpdateTask 更新任务
func (h *ProjectHandler) UpdateTask(c *gin.Context) {
	id := c.Param("id")

	var req service.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	task, err := h.svc.UpdateTask(c.Request.Context(), id, &req)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, task)
}

// DeleteTask 删除任务
func (h *ProjectHandler) DeleteTask(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteTask(c.Request.Context(), id); err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, nil)
}
