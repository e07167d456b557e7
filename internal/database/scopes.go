package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/yukikurage/field-service-api/internal/utils"
)

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// AssignedTo keeps tasks of one employee. A nil id keeps everything.
func AssignedTo(employeeID *uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if employeeID == nil {
			return db
		}
		return db.Where("tasks.employee_id = ?", *employeeID)
	}
}

// CompletedWithin keeps tasks completed in [from, to). Nil bounds are open.
func CompletedWithin(from, to *time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if from != nil {
			db = db.Where("tasks.completed_at >= ?", *from)
		}
		if to != nil {
			db = db.Where("tasks.completed_at < ?", *to)
		}
		return db
	}
}

// ScheduledFirst orders by scheduled time with unscheduled tasks last.
func ScheduledFirst(db *gorm.DB) *gorm.DB {
	return db.Order("CASE WHEN tasks.scheduled_time IS NULL THEN 1 ELSE 0 END, tasks.scheduled_time ASC").
		Order("tasks.id ASC")
}
