package handler

import (
	"errors"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/repository"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/service"
	"github.com/gin-gonic/gin"
)

// BoardHandler 任务看板处理器
type BoardHandler struct {
	svc *service.BoardService
}

// NewBoardHandler 创建看板处理器
func NewBoardHandler(svc *service.BoardService) *BoardHandler {
	return &BoardHandler{svc: svc}
}

// GetBoard 获取项目看板（分组 + 指标 + 同步状态）
func (h *BoardHandler) GetBoard(c *gin.Context) {
	projectID := c.Param("id")

	board, err := h.svc.GetBoard(c.Request.Context(), projectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, board)
}

// GetMetrics 获取项目看板执行指标
func (h *BoardHandler) GetMetrics(c *gin.Context) {
	projectID := c.Param("id")

	board, err := h.svc.GetBoard(c.Request.Context(), projectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, board.Metrics)
}

// SetStatusRequest 状态迁移请求
type SetStatusRequest struct {
	StatusID string `json:"status_id" binding:"required"`
}

// SetTaskStatus 看板状态迁移（下拉选择与拖放走同一入口）
func (h *BoardHandler) SetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.svc.SetTaskStatus(c.Request.Context(), taskID, req.StatusID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "Task not found")
			return
		}
		InternalError(c, err.Error())
		return
	}

	// 乐观更新：本地已生效，持久化在后台进行
	c.JSON(202, Response{Code: 0, Message: "accepted"})
}
