package repository

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	Project *ProjectRepository
	Task    *TaskRepository
	Catalog *CatalogRepository
	Note    *NoteRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB, rdb *redis.Client) *Repositories {
	return &Repositories{
		Project: NewProjectRepository(db),
		Task:    NewTaskRepository(db),
		Catalog: NewCatalogRepository(db, rdb),
		Note:    NewNoteRepository(db),
	}
}
