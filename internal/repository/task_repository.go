package repository

import (
	"context"
	"fmt"

	"github.com/yukikurage/field-service-api/internal/database"
	"github.com/yukikurage/field-service-api/internal/lifecycle"
	"github.com/yukikurage/field-service-api/internal/models"
	"github.com/yukikurage/field-service-api/internal/utils"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create assigns the next order number within the organization and inserts the task.
// Soft-deleted tasks keep their numbers so a number is never handed out twice.
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int64
		if err := tx.Unscoped().
			Model(&models.Task{}).
			Where("organization_id = ?", task.OrganizationID).
			Select("COALESCE(MAX(order_number), 0)").
			Scan(&last).Error; err != nil {
			return fmt.Errorf("failed to allocate order number: %w", err)
		}

		task.OrderNumber = last + 1
		return tx.Create(task).Error
	})
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	if len(filter.OrganizationIDs) == 0 {
		return []models.Task{}, 0, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Task{}).Where("tasks.organization_id IN ?", filter.OrganizationIDs)

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("tasks.status IN ?", filter.Statuses)
	}
	query = query.Scopes(database.AssignedTo(filter.EmployeeID))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query
	if filter.SortByScheduled {
		listQuery = listQuery.Scopes(database.ScheduledFirst)
	} else {
		listQuery = listQuery.Order("tasks.created_at DESC").Order("tasks.id DESC")
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize)))
	}

	if err := listQuery.Preload("Employee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// UpdateDetails writes the descriptive fields; lifecycle columns are only
// written by ApplyTransition.
func (r *GormTaskRepository) UpdateDetails(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).
		Model(task).
		Select("Address", "Latitude", "Longitude", "WorkType", "Description", "Priority",
			"CustomerName", "CustomerPhone", "ScheduledTime").
		Updates(task).Error
}

// Delete soft deletes a task
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Task{}, id).Error
}

// ApplyTransition performs a conditional update on the task status together
// with the pause ledger write, in one transaction.
func (r *GormTaskRepository) ApplyTransition(ctx context.Context, task *models.Task, expected models.TaskStatus, op PauseOp) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", task.ID, expected).
			Updates(map[string]interface{}{
				"status":               task.Status,
				"employee_id":          task.EmployeeID,
				"en_route_at":          task.EnRouteAt,
				"started_at":           task.StartedAt,
				"completed_at":         task.CompletedAt,
				"cancelled_at":         task.CancelledAt,
				"en_route_latitude":    task.EnRouteLatitude,
				"en_route_longitude":   task.EnRouteLongitude,
				"start_latitude":       task.StartLatitude,
				"start_longitude":      task.StartLongitude,
				"completion_latitude":  task.CompletionLatitude,
				"completion_longitude": task.CompletionLongitude,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}

		if op.Close {
			res := tx.Model(&models.PauseRecord{}).
				Where("task_id = ? AND resumed_at IS NULL", task.ID).
				Update("resumed_at", op.At)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return lifecycle.ErrNoActivePause
			}
		}

		if op.Open {
			record := models.PauseRecord{TaskID: task.ID, PausedAt: op.At}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// ListCompleted returns completed tasks with their pause records and employee
func (r *GormTaskRepository) ListCompleted(ctx context.Context, q CompletedQuery) ([]models.Task, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).
		Preload("Employee").
		Preload("PauseRecords").
		Where("tasks.organization_id = ? AND tasks.status = ?", q.OrganizationID, models.TaskStatusCompleted).
		Scopes(database.AssignedTo(q.EmployeeID), database.CompletedWithin(q.CompletedFrom, q.CompletedTo))

	if err := query.Order("tasks.completed_at ASC").Order("tasks.id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
