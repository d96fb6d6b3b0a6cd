package repository

import (
	"context"
	"errors"
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"gorm.io/gorm"
)

// NoteRepository 笔记仓库
type NoteRepository struct {
	db *gorm.DB
}

// NewNoteRepository 创建笔记仓库
func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// FindByID 根据ID查找笔记
func (r *NoteRepository) FindByID(ctx context.Context, id string) (*entity.Note, error) {
	var note entity.Note
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&note).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

// Create 创建笔记
func (r *NoteRepository) Create(ctx context.Context, note *entity.Note) error {
	return r.db.WithContext(ctx).Create(note).Error
}

// Update 更新笔记
func (r *NoteRepository) Update(ctx context.Context, note *entity.Note) error {
	return r.db.WithContext(ctx).Save(note).Error
}

// Delete 软删除笔记
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entity.Note{}).
		Where("id = ?", id).
		Update("deleted_at", now).Error
}

// List 获取笔记列表（分页）
func (r *NoteRepository) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.Note, int64, error) {
	var notes []entity.Note
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Note{}).Where("deleted_at IS NULL")

	if projectID, ok := filters["project_id"].(string); ok && projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if createdBy, ok := filters["created_by"].(string); ok && createdBy != "" {
		query = query.Where("created_by = ?", createdBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("updated_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&notes).Error

	return notes, total, err
}
