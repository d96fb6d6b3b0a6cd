package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const catalogCacheTTL = 5 * time.Minute

// CatalogRepository 基础目录仓库（阶段/活动模板/状态，均为只读目录数据）
type CatalogRepository struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewCatalogRepository 创建目录仓库，rdb 可为 nil（禁用缓存）
func NewCatalogRepository(db *gorm.DB, rdb *redis.Client) *CatalogRepository {
	return &CatalogRepository{db: db, rdb: rdb}
}

// cacheGet 从 Redis 读取缓存的目录 JSON
func (r *CatalogRepository) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if r.rdb == nil {
		return false
	}
	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(raw), dest) == nil
}

// cacheSet 写入 Redis 缓存，失败静默（缓存不可用不影响主流程）
func (r *CatalogRepository) cacheSet(ctx context.Context, key string, value interface{}) {
	if r.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	r.rdb.Set(ctx, key, raw, catalogCacheTTL)
}

// ListPhases 获取 Activate 阶段目录（按 sort_order 升序）
func (r *CatalogRepository) ListPhases(ctx context.Context) ([]entity.ActivatePhase, error) {
	var phases []entity.ActivatePhase
	if r.cacheGet(ctx, "catalog:phases", &phases) {
		return phases, nil
	}
	err := r.db.WithContext(ctx).
		Order("sort_order ASC").
		Find(&phases).Error
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, "catalog:phases", phases)
	return phases, nil
}

// ListActiveTemplates 获取启用的活动模板目录
func (r *CatalogRepository) ListActiveTemplates(ctx context.Context) ([]entity.ActivityTemplate, error) {
	var templates []entity.ActivityTemplate
	if r.cacheGet(ctx, "catalog:templates:active", &templates) {
		return templates, nil
	}
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("activate_phase_key ASC, name ASC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, "catalog:templates:active", templates)
	return templates, nil
}

// ListStatuses 获取启用的任务状态目录（按 order_index 升序）
func (r *CatalogRepository) ListStatuses(ctx context.Context) ([]entity.TaskStatus, error) {
	var statuses []entity.TaskStatus
	if r.cacheGet(ctx, "catalog:statuses", &statuses) {
		return statuses, nil
	}
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("order_index ASC").
		Find(&statuses).Error
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, "catalog:statuses", statuses)
	return statuses, nil
}

// FindStatusByCode 按编码查找状态
func (r *CatalogRepository) FindStatusByCode(ctx context.Context, code string) (*entity.TaskStatus, error) {
	var status entity.TaskStatus
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &status, nil
}

// CreateTemplate 创建活动模板（目录管理，管理员专用）
func (r *CatalogRepository) CreateTemplate(ctx context.Context, tpl *entity.ActivityTemplate) error {
	if err := r.db.WithContext(ctx).Create(tpl).Error; err != nil {
		return err
	}
	r.invalidateTemplates(ctx)
	return nil
}

// FindTemplateByID 根据ID查找活动模板
func (r *CatalogRepository) FindTemplateByID(ctx context.Context, id string) (*entity.ActivityTemplate, error) {
	var tpl entity.ActivityTemplate
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

// UpdateTemplate 更新活动模板
func (r *CatalogRepository) UpdateTemplate(ctx context.Context, tpl *entity.ActivityTemplate) error {
	if err := r.db.WithContext(ctx).Save(tpl).Error; err != nil {
		return err
	}
	r.invalidateTemplates(ctx)
	return nil
}

func (r *CatalogRepository) invalidateTemplates(ctx context.Context) {
	if r.rdb == nil {
		return
	}
	r.rdb.Del(ctx, "catalog:templates:active")
}
