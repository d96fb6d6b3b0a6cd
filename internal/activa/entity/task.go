package entity

import (
	"time"
)

// Task 任务实体
type Task struct {
	ID                  string     `json:"id" gorm:"primaryKey;size:32"`
	ProjectID           string     `json:"project_id" gorm:"size:32;not null;index"`
	Title               string     `json:"title" gorm:"size:256;not null"`
	Description         string     `json:"description" gorm:"type:text"`
	StatusID            string     `json:"status_id" gorm:"size:32;not null;index"`
	ActivatePhaseKey    *string    `json:"activate_phase_key" gorm:"size:32"`
	PlannedStartDate    *time.Time `json:"planned_start_date" gorm:"type:date"`
	PlannedEndDate      *time.Time `json:"planned_end_date" gorm:"type:date"`
	DueDate             *time.Time `json:"due_date" gorm:"type:date"`
	Priority            string     `json:"priority" gorm:"size:16;not null;default:medium"`
	AssigneeID          *string    `json:"assignee_id" gorm:"size:32"`
	IsTemplateGenerated bool       `json:"is_template_generated" gorm:"not null;default:false"`
	CreatedBy           string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	// 关联
	Project *Project    `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	Status  *TaskStatus `json:"status,omitempty" gorm:"foreignKey:StatusID"`
}

func (Task) TableName() string {
	return "tasks"
}

// TaskPriority 任务优先级
const (
	TaskPriorityLow      = "low"
	TaskPriorityMedium   = "medium"
	TaskPriorityHigh     = "high"
	TaskPriorityCritical = "critical"
)
