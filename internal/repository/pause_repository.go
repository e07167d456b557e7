package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/field-service-api/internal/models"
	"gorm.io/gorm"
)

// GormPauseRepository reads the pause ledger. Writes go through
// TaskRepository.ApplyTransition so they share the status update transaction.
type GormPauseRepository struct {
	db *gorm.DB
}

func NewPauseRepository(db *gorm.DB) PauseRepository {
	return &GormPauseRepository{db: db}
}

func (r *GormPauseRepository) ListByTask(ctx context.Context, taskID uint64) ([]models.PauseRecord, error) {
	var records []models.PauseRecord
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("paused_at ASC").Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *GormPauseRepository) FindActive(ctx context.Context, taskID uint64) (*models.PauseRecord, error) {
	var record models.PauseRecord
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND resumed_at IS NULL", taskID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
