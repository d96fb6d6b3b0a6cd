package repository

import (
	"context"
	"errors"
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"gorm.io/gorm"
)

// TaskRepository 任务仓库
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓库
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// FindByID 根据ID查找任务
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*entity.Task, error) {
	var task entity.Task
	err := r.db.WithContext(ctx).
		Preload("Status").
		Where("id = ?", id).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// Create 创建任务
func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// CreateBatch 批量创建任务（单条语句，整体成功或整体失败）
func (r *TaskRepository) CreateBatch(ctx context.Context, tasks []entity.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tasks).Error
}

// Update 更新任务
func (r *TaskRepository) Update(ctx context.Context, task *entity.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// UpdateStatus 更新任务状态
func (r *TaskRepository) UpdateStatus(ctx context.Context, taskID, statusID string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Task{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status_id":  statusID,
			"updated_at": time.Now(),
		}).Error
}

// Delete 删除任务
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.Task{}).Error
}

// ListByProject 获取项目任务列表
func (r *TaskRepository) ListByProject(ctx context.Context, projectID string, filters map[string]interface{}) ([]entity.Task, error) {
	var tasks []entity.Task

	query := r.db.WithContext(ctx).
		Where("project_id = ?", projectID)

	if statusID, ok := filters["status_id"].(string); ok && statusID != "" {
		query = query.Where("status_id = ?", statusID)
	}
	if phaseKey, ok := filters["activate_phase_key"].(string); ok && phaseKey != "" {
		query = query.Where("activate_phase_key = ?", phaseKey)
	}
	if priority, ok := filters["priority"].(string); ok && priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if generated, ok := filters["is_template_generated"].(bool); ok {
		query = query.Where("is_template_generated = ?", generated)
	}

	err := query.
		Order("created_at ASC").
		Find(&tasks).Error

	return tasks, err
}

// List 获取任务列表（分页）
func (r *TaskRepository) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.Task, int64, error) {
	var tasks []entity.Task
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Task{})

	if projectID, ok := filters["project_id"].(string); ok && projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if statusID, ok := filters["status_id"].(string); ok && statusID != "" {
		query = query.Where("status_id = ?", statusID)
	}
	if priority, ok := filters["priority"].(string); ok && priority != "" {
		query = query.Where("priority = ?", priority)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Status").
		Order("created_at ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&tasks).Error

	return tasks, total, err
}

// CountGenerated 统计项目下模板生成的任务数
func (r *TaskRepository) CountGenerated(ctx context.Context, projectID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Task{}).
		Where("project_id = ? AND is_template_generated = ?", projectID, true).
		Count(&count).Error
	return count, err
}
