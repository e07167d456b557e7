package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/field-service-api/internal/constants"
	"github.com/yukikurage/field-service-api/internal/logger"
	"github.com/yukikurage/field-service-api/internal/models"
	"github.com/yukikurage/field-service-api/internal/repository"
	"github.com/yukikurage/field-service-api/internal/storage"
)

var (
	ErrNoPhotos       = errors.New("at least one photo is required")
	ErrTooManyPhotos  = fmt.Errorf("at most %d photos per upload", constants.MaxPhotosPerUpload)
	ErrPhotoTooLarge  = fmt.Errorf("photo exceeds %d bytes", constants.MaxPhotoSize)
	ErrNotAnImageFile = errors.New("file is not an image")
)

// PhotoFile is one file of a bulk upload.
type PhotoFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadResult reports a bulk upload. A failed file does not stop the others.
type UploadResult struct {
	Uploaded []models.TaskPhoto `json:"uploaded"`
	Failed   int                `json:"failed"`
	Errors   []string           `json:"errors,omitempty"`
}

type PhotoService struct {
	photoRepo repository.PhotoRepository
	taskRepo  repository.TaskRepository
	storage   storage.ObjectStorage
	log       *logrus.Logger
}

func NewPhotoService(photoRepo repository.PhotoRepository, taskRepo repository.TaskRepository, store storage.ObjectStorage) *PhotoService {
	return &PhotoService{photoRepo: photoRepo, taskRepo: taskRepo, storage: store, log: logger.Logger}
}

// Upload stores every file and records it against the task
func (s *PhotoService) Upload(ctx context.Context, taskID, uploadedBy uint64, files []PhotoFile) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, ErrNoPhotos
	}
	if len(files) > constants.MaxPhotosPerUpload {
		return nil, ErrTooManyPhotos
	}
	if err := ensureTaskExists(ctx, s.taskRepo, taskID); err != nil {
		return nil, err
	}

	result := &UploadResult{Uploaded: make([]models.TaskPhoto, 0, len(files))}
	for _, f := range files {
		photo, err := s.uploadOne(ctx, taskID, uploadedBy, f)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", f.Name, err))
			s.log.WithError(err).WithFields(logrus.Fields{"task_id": taskID, "file": f.Name}).Warn("photo upload failed")
			continue
		}
		result.Uploaded = append(result.Uploaded, *photo)
	}

	return result, nil
}

func (s *PhotoService) uploadOne(ctx context.Context, taskID, uploadedBy uint64, f PhotoFile) (*models.TaskPhoto, error) {
	if len(f.Data) > constants.MaxPhotoSize {
		return nil, ErrPhotoTooLarge
	}
	if f.ContentType != "" && !isImage(f.ContentType) {
		return nil, ErrNotAnImageFile
	}

	obj, err := s.storage.Save(ctx, f.Name, f.ContentType, f.Data)
	if err != nil {
		return nil, err
	}

	photo := &models.TaskPhoto{
		TaskID:      taskID,
		ObjectKey:   obj.Key,
		URL:         obj.URL,
		ContentType: f.ContentType,
		Size:        obj.Size,
		UploadedBy:  uploadedBy,
	}
	if err := s.photoRepo.Create(ctx, photo); err != nil {
		if delErr := s.storage.Delete(ctx, obj.Key); delErr != nil {
			s.log.WithError(delErr).WithField("object_key", obj.Key).Warn("failed to remove orphaned object")
		}
		return nil, fmt.Errorf("failed to record photo: %w", err)
	}
	return photo, nil
}

func (s *PhotoService) List(ctx context.Context, taskID uint64) ([]models.TaskPhoto, error) {
	if err := ensureTaskExists(ctx, s.taskRepo, taskID); err != nil {
		return nil, err
	}
	photos, err := s.photoRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return photos, nil
}

func isImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
