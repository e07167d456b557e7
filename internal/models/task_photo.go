package models

import "time"

type TaskPhoto struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	TaskID      uint64    `gorm:"not null;index" json:"task_id"`
	ObjectKey   string    `gorm:"type:varchar(255);not null" json:"object_key"`
	URL         string    `gorm:"type:varchar(1024);not null" json:"url"`
	ContentType string    `gorm:"type:varchar(100)" json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  uint64    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
