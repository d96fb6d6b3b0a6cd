package entity

import (
	"time"
)

// ActivatePhase SAP Activate 阶段目录（只读基础数据）
type ActivatePhase struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	PhaseKey      string    `json:"phase_key" gorm:"size:32;not null;uniqueIndex"`
	Name          string    `json:"name" gorm:"size:64;not null"`
	SortOrder     int       `json:"sort_order" gorm:"not null;uniqueIndex"`
	WeightPercent float64   `json:"weight_percent" gorm:"type:decimal(5,2);not null"`
	CreatedAt     time.Time `json:"created_at"`
}

func (ActivatePhase) TableName() string {
	return "activate_phases"
}

// ActivityTemplate 活动模板目录（只读基础数据）
type ActivityTemplate struct {
	ID                   string    `json:"id" gorm:"primaryKey;size:32"`
	ActivatePhaseKey     string    `json:"activate_phase_key" gorm:"size:32;not null;index"`
	Name                 string    `json:"name" gorm:"size:256;not null"`
	ActivityType         string    `json:"activity_type" gorm:"size:32;not null;default:task"`
	DefaultDurationDays  int       `json:"default_duration_days" gorm:"not null;default:0"`
	OffsetPercentInPhase *float64  `json:"offset_percent_in_phase" gorm:"type:decimal(5,2)"`
	IsActive             bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (ActivityTemplate) TableName() string {
	return "activity_templates"
}

// TaskStatus 任务状态目录（看板列按 order_index 排序）
type TaskStatus struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	Code       string    `json:"code" gorm:"size:32;not null;uniqueIndex"`
	Name       string    `json:"name" gorm:"size:64;not null"`
	OrderIndex int       `json:"order_index" gorm:"not null"`
	IsActive   bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt  time.Time `json:"created_at"`
}

func (TaskStatus) TableName() string {
	return "task_statuses"
}

// ActivityType 活动类型
const (
	ActivityTypeTask      = "task"
	ActivityTypeMilestone = "milestone"
	ActivityTypeWorkshop  = "workshop"
)

// StatusCode 状态编码
const (
	StatusCodeTodo       = "TODO"
	StatusCodeInProgress = "IN_PROGRESS"
	StatusCodeBlocked    = "BLOCKED"
	StatusCodeInReview   = "IN_REVIEW"
	StatusCodeDone       = "DONE"
)
