package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusAssigned   TaskStatus = "assigned"
	TaskStatusEnRoute    TaskStatus = "en_route"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusPaused     TaskStatus = "paused"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsValid reports whether s belongs to the wire vocabulary.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusAssigned, TaskStatusEnRoute, TaskStatusInProgress,
		TaskStatusPaused, TaskStatusCompleted, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// IsValid reports whether p belongs to the wire vocabulary.
func (p TaskPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Point is a WGS84 coordinate pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PointFrom builds a Point from a pair of nullable columns.
func PointFrom(lat, lng *float64) *Point {
	if lat == nil || lng == nil {
		return nil
	}
	return &Point{Latitude: *lat, Longitude: *lng}
}

// Columns splits p into a pair of nullable columns.
func (p *Point) Columns() (*float64, *float64) {
	if p == nil {
		return nil, nil
	}
	lat, lng := p.Latitude, p.Longitude
	return &lat, &lng
}

type Task struct {
	ID             uint64 `gorm:"primarykey" json:"id"`
	OrderNumber    int64  `gorm:"not null;uniqueIndex:idx_tasks_org_order" json:"order_number"`
	OrganizationID uint64 `gorm:"not null;uniqueIndex:idx_tasks_org_order" json:"organization_id"`
	CreatorID      uint64 `gorm:"not null" json:"creator_id"`

	Address       string       `gorm:"type:varchar(500);not null" json:"address"`
	Latitude      *float64     `json:"latitude"`
	Longitude     *float64     `json:"longitude"`
	WorkType      string       `gorm:"type:varchar(100)" json:"work_type"`
	Description   string       `gorm:"type:text" json:"description"`
	Priority      TaskPriority `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	CustomerName  string       `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerPhone string       `gorm:"type:varchar(50)" json:"customer_phone"`
	ScheduledTime *time.Time   `json:"scheduled_time"`

	Status     TaskStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	EmployeeID *uint64    `gorm:"index" json:"employee_id"`

	EnRouteAt   *time.Time `json:"en_route_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `gorm:"index" json:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`

	EnRouteLatitude     *float64 `json:"en_route_latitude"`
	EnRouteLongitude    *float64 `json:"en_route_longitude"`
	StartLatitude       *float64 `json:"start_latitude"`
	StartLongitude      *float64 `json:"start_longitude"`
	CompletionLatitude  *float64 `json:"completion_latitude"`
	CompletionLongitude *float64 `json:"completion_longitude"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Employee     *Employee     `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	PauseRecords []PauseRecord `gorm:"foreignKey:TaskID" json:"pause_records,omitempty"`
}
