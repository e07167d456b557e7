package models

import "time"

// PauseRecord is one pause interval of a task. A nil ResumedAt marks the
// active pause.
type PauseRecord struct {
	ID        uint64     `gorm:"primarykey" json:"id"`
	TaskID    uint64     `gorm:"not null;index" json:"task_id"`
	PausedAt  time.Time  `gorm:"not null" json:"paused_at"`
	ResumedAt *time.Time `json:"resumed_at"`
}

// IsOpen reports whether the pause has not been resumed yet.
func (p PauseRecord) IsOpen() bool {
	return p.ResumedAt == nil
}
