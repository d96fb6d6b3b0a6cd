package handler

import (
	"errors"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/service"
	"github.com/gin-gonic/gin"
)

// PlanHandler 阶段计划处理器
type PlanHandler struct {
	planSvc    *service.PlanService
	projectSvc *service.ProjectService
}

// NewPlanHandler 创建计划处理器
func NewPlanHandler(planSvc *service.PlanService, projectSvc *service.ProjectService) *PlanHandler {
	return &PlanHandler{planSvc: planSvc, projectSvc: projectSvc}
}

// GetPhaseWindows 计算项目阶段时间窗（不落库）
func (h *PlanHandler) GetPhaseWindows(c *gin.Context) {
	projectID := c.Param("id")

	project, err := h.projectSvc.GetProject(c.Request.Context(), projectID)
	if err != nil {
		NotFound(c, "Project not found")
		return
	}

	phases, err := h.planSvc.PhaseCatalog(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	windows := service.ComputePhaseWindows(project.StartDate, project.EndDate, phases)
	Success(c, gin.H{"items": windows})
}

// GeneratePlan 为项目生成初始任务计划
func (h *PlanHandler) GeneratePlan(c *gin.Context) {
	projectID := c.Param("id")
	userID := GetUserID(c)

	result, err := h.planSvc.GeneratePlan(c.Request.Context(), projectID, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDateRange):
			BadRequest(c, "Project start date must be before end date")
		case errors.Is(err, service.ErrPlanAlreadyExists):
			Conflict(c, "A generated plan already exists for this project")
		case errors.Is(err, service.ErrInitialStatusMissing):
			InternalError(c, "Initial task status is not configured")
		default:
			InternalError(c, "Failed to generate plan: "+err.Error())
		}
		return
	}

	Created(c, result)
}
