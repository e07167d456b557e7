package repository

import (
	"context"

	"github.com/yukikurage/field-service-api/internal/models"
	"gorm.io/gorm"
)

// GormPhotoRepository is a GORM implementation of PhotoRepository
type GormPhotoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &GormPhotoRepository{db: db}
}

func (r *GormPhotoRepository) Create(ctx context.Context, photo *models.TaskPhoto) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

func (r *GormPhotoRepository) ListByTask(ctx context.Context, taskID uint64) ([]models.TaskPhoto, error) {
	var photos []models.TaskPhoto
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("id ASC").Find(&photos).Error; err != nil {
		return nil, err
	}
	return photos, nil
}

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) Create(ctx context.Context, comment *models.TaskComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *GormCommentRepository) ListByTask(ctx context.Context, taskID uint64) ([]models.TaskComment, error) {
	var comments []models.TaskComment
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at ASC").Order("id ASC").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
