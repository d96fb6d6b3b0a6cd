package entity

import (
	"time"
)

// Project 项目实体
type Project struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	Code        string     `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name        string     `json:"name" gorm:"size:128;not null"`
	Description string     `json:"description" gorm:"type:text"`
	Status      string     `json:"status" gorm:"size:16;not null;default:planning"`
	ManagerID   string     `json:"manager_id" gorm:"size:32;not null"`
	StartDate   *time.Time `json:"start_date" gorm:"type:date"`
	EndDate     *time.Time `json:"end_date" gorm:"type:date"`
	CreatedBy   string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at" gorm:"index"`

	// 关联
	Phases []ProjectPhase `json:"phases,omitempty" gorm:"foreignKey:ProjectID"`
	Tasks  []Task         `json:"tasks,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectPhase 项目阶段实例（按 Activate 阶段目录为每个项目复制一份）
type ProjectPhase struct {
	ID        string     `json:"id" gorm:"primaryKey;size:32"`
	ProjectID string     `json:"project_id" gorm:"size:32;not null;index"`
	PhaseKey  string     `json:"phase_key" gorm:"size:32;not null"`
	Name      string     `json:"name" gorm:"size:64;not null"`
	SortOrder int        `json:"sort_order" gorm:"not null"`
	StartDate *time.Time `json:"start_date" gorm:"type:date"`
	EndDate   *time.Time `json:"end_date" gorm:"type:date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// 关联
	Project *Project `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
}

func (ProjectPhase) TableName() string {
	return "project_phases"
}

// ProjectStatus 项目状态
const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)
