package entity

import (
	"time"
)

// Note 项目笔记
type Note struct {
	ID        string     `json:"id" gorm:"primaryKey;size:32"`
	ProjectID *string    `json:"project_id" gorm:"size:32;index"`
	Title     string     `json:"title" gorm:"size:256;not null"`
	Content   string     `json:"content" gorm:"type:text"`
	Tags      string     `json:"tags" gorm:"size:256"`
	CreatedBy string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`
}

func (Note) TableName() string {
	return "notes"
}
