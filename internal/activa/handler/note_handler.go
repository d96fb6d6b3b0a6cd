package handler

import (
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/service"
	"github.com/gin-gonic/gin"
)

// NoteHandler 笔记处理器
type NoteHandler struct {
	svc *service.NoteService
}

// NewNoteHandler 创建笔记处理器
func NewNoteHandler(svc *service.NoteService) *NoteHandler {
	return &NoteHandler{svc: svc}
}

// List 获取笔记列表
func (h *NoteHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	filters := map[string]interface{}{
		"project_id": c.Query("project_id"),
		"created_by": c.Query("created_by"),
	}

	result, err := h.svc.ListNotes(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, result)
}

// Get 获取笔记详情
func (h *NoteHandler) Get(c *gin.Context) {
	note, err := h.svc.GetNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "Note not found")
		return
	}
	Success(c, note)
}

// Create 创建笔记
func (h *NoteHandler) Create(c *gin.Context) {
	var req service.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	note, err := h.svc.CreateNote(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Created(c, note)
}

// Update 更新笔记
func (h *NoteHandler) Update(c *gin.Context) {
	var req service.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	note, err := h.svc.UpdateNote(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, note)
}

// Delete 删除笔记
func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteNote(c.Request.Context(), c.Param("id")); err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, nil)
}
