package models

import "time"

// TaskComment is free text left on a task, either by an employee (bot or
// mobile client) or by an office user.
type TaskComment struct {
	ID         uint64    `gorm:"primarykey" json:"id"`
	TaskID     uint64    `gorm:"not null;index" json:"task_id"`
	EmployeeID *uint64   `json:"employee_id"`
	UserID     *uint64   `json:"user_id"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
