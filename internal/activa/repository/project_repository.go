package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"gorm.io/gorm"
)

// ProjectRepository 项目仓库
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目仓库
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindByID 根据ID查找项目
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Update 更新项目
func (r *ProjectRepository) Update(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

// Delete 软删除项目
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entity.Project{}).
		Where("id = ?", id).
		Update("deleted_at", now).Error
}

// List 获取项目列表（分页）
func (r *ProjectRepository) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.Project, int64, error) {
	var projects []entity.Project
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Project{}).Where("deleted_at IS NULL")

	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if managerID, ok := filters["manager_id"].(string); ok && managerID != "" {
		query = query.Where("manager_id = ?", managerID)
	}
	if keyword, ok := filters["keyword"].(string); ok && keyword != "" {
		// LOWER + LIKE 在 postgres 与 sqlite 下行为一致（ILIKE 仅 postgres 支持）
		pattern := "%" + strings.ToLower(keyword) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&projects).Error

	return projects, total, err
}

// GenerateCode 生成项目编码
func (r *ProjectRepository) GenerateCode(ctx context.Context) (string, error) {
	var count int64
	r.db.WithContext(ctx).Model(&entity.Project{}).Count(&count)
	return fmt.Sprintf("PRJ-%04d", count+1), nil
}

// UpdateDates 更新项目起止日期
func (r *ProjectRepository) UpdateDates(ctx context.Context, projectID string, start, end *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.Project{}).
		Where("id = ?", projectID).
		Updates(map[string]interface{}{
			"start_date": start,
			"end_date":   end,
			"updated_at": time.Now(),
		}).Error
}

// CreatePhase 创建阶段实例
func (r *ProjectRepository) CreatePhase(ctx context.Context, phase *entity.ProjectPhase) error {
	return r.db.WithContext(ctx).Create(phase).Error
}

// ListPhases 获取项目阶段列表
func (r *ProjectRepository) ListPhases(ctx context.Context, projectID string) ([]entity.ProjectPhase, error) {
	var phases []entity.ProjectPhase
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("sort_order ASC").
		Find(&phases).Error
	return phases, err
}

// UpdatePhase 更新阶段实例
func (r *ProjectRepository) UpdatePhase(ctx context.Context, phase *entity.ProjectPhase) error {
	return r.db.WithContext(ctx).Save(phase).Error
}
