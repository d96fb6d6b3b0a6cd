package service

import (
	"context"
	"fmt"
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/repository"
	"github.com/google/uuid"
)

// NoteService 笔记服务
type NoteService struct {
	noteRepo *repository.NoteRepository
}

// NewNoteService 创建笔记服务
func NewNoteService(noteRepo *repository.NoteRepository) *NoteService {
	return &NoteService{noteRepo: noteRepo}
}

// CreateNoteRequest 创建笔记请求
type CreateNoteRequest struct {
	ProjectID string `json:"project_id"`
	Title     string `json:"title" binding:"required"`
	Content   string `json:"content"`
	Tags      string `json:"tags"`
}

// UpdateNoteRequest 更新笔记请求
type UpdateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
}

// NoteListResult 笔记列表结果
type NoteListResult struct {
	Items      []entity.Note `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

// ListNotes 获取笔记列表
func (s *NoteService) ListNotes(ctx context.Context, page, pageSize int, filters map[string]interface{}) (*NoteListResult, error) {
	notes, total, err := s.noteRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &NoteListResult{
		Items:      notes,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetNote 获取笔记详情
func (s *NoteService) GetNote(ctx context.Context, id string) (*entity.Note, error) {
	return s.noteRepo.FindByID(ctx, id)
}

// CreateNote 创建笔记
func (s *NoteService) CreateNote(ctx context.Context, userID string, req *CreateNoteRequest) (*entity.Note, error) {
	var projectID *string
	if req.ProjectID != "" {
		projectID = &req.ProjectID
	}

	now := time.Now()
	note := &entity.Note{
		ID:        uuid.New().String()[:32],
		ProjectID: projectID,
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

// UpdateNote 更新笔记
func (s *NoteService) UpdateNote(ctx context.Context, id string, req *UpdateNoteRequest) (*entity.Note, error) {
	note, err := s.noteRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find note: %w", err)
	}

	if req.Title != "" {
		note.Title = req.Title
	}
	if req.Content != "" {
		note.Content = req.Content
	}
	if req.Tags != "" {
		note.Tags = req.Tags
	}
	note.UpdatedAt = time.Now()

	if err := s.noteRepo.Update(ctx, note); err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	return note, nil
}

// DeleteNote 删除笔记
func (s *NoteService) DeleteNote(ctx context.Context, id string) error {
	return s.noteRepo.Delete(ctx, id)
}
