package handler

import (
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CatalogHandler 基础目录处理器
type CatalogHandler struct {
	repo *repository.CatalogRepository
}

// NewCatalogHandler 创建目录处理器
func NewCatalogHandler(repo *repository.CatalogRepository) *CatalogHandler {
	return &CatalogHandler{repo: repo}
}

// ListPhases 获取 Activate 阶段目录
func (h *CatalogHandler) ListPhases(c *gin.Context) {
	phases, err := h.repo.ListPhases(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"items": phases})
}

// ListTemplates 获取启用的活动模板目录
func (h *CatalogHandler) ListTemplates(c *gin.Context) {
	templates, err := h.repo.ListActiveTemplates(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"items": templates})
}

// ListStatuses 获取任务状态目录
func (h *CatalogHandler) ListStatuses(c *gin.Context) {
	statuses, err := h.repo.ListStatuses(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"items": statuses})
}

// TemplateRequest 活动模板管理请求
type TemplateRequest struct {
	ActivatePhaseKey     string   `json:"activate_phase_key" binding:"required"`
	Name                 string   `json:"name" binding:"required"`
	ActivityType         string   `json:"activity_type"`
	DefaultDurationDays  int      `json:"default_duration_days"`
	OffsetPercentInPhase *float64 `json:"offset_percent_in_phase"`
	IsActive             *bool    `json:"is_active"`
}

// CreateTemplate 创建活动模板（管理员）
func (h *CatalogHandler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	activityType := req.ActivityType
	if activityType == "" {
		activityType = entity.ActivityTypeTask
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := time.Now()
	tpl := &entity.ActivityTemplate{
		ID:                   uuid.New().String()[:32],
		ActivatePhaseKey:     req.ActivatePhaseKey,
		Name:                 req.Name,
		ActivityType:         activityType,
		DefaultDurationDays:  req.DefaultDurationDays,
		OffsetPercentInPhase: req.OffsetPercentInPhase,
		IsActive:             isActive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := h.repo.CreateTemplate(c.Request.Context(), tpl); err != nil {
		InternalError(c, err.Error())
		return
	}

	Created(c, tpl)
}

// UpdateTemplate 更新活动模板（管理员）
func (h *CatalogHandler) UpdateTemplate(c *gin.Context) {
	tpl, err := h.repo.FindTemplateByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "Template not found")
		return
	}

	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tpl.ActivatePhaseKey = req.ActivatePhaseKey
	tpl.Name = req.Name
	if req.ActivityType != "" {
		tpl.ActivityType = req.ActivityType
	}
	tpl.DefaultDurationDays = req.DefaultDurationDays
	tpl.OffsetPercentInPhase = req.OffsetPercentInPhase
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}
	tpl.UpdatedAt = time.Now()

	if err := h.repo.UpdateTemplate(c.Request.Context(), tpl); err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, tpl)
}
