package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/field-service-api/internal/models"
	"github.com/yukikurage/field-service-api/internal/repository"
	"gorm.io/gorm"
)

var ErrCommentEmpty = errors.New("comment cannot be empty")

type CommentService struct {
	commentRepo repository.CommentRepository
	taskRepo    repository.TaskRepository
}

func NewCommentService(commentRepo repository.CommentRepository, taskRepo repository.TaskRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo, taskRepo: taskRepo}
}

// AddCommentInput has exactly one author: EmployeeID from the bot, UserID
// from the web.
type AddCommentInput struct {
	TaskID     uint64
	EmployeeID *uint64
	UserID     *uint64
	Body       string
}

func (s *CommentService) Add(ctx context.Context, input AddCommentInput) (*models.TaskComment, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, ErrCommentEmpty
	}
	if err := ensureTaskExists(ctx, s.taskRepo, input.TaskID); err != nil {
		return nil, err
	}

	comment := &models.TaskComment{
		TaskID:     input.TaskID,
		EmployeeID: input.EmployeeID,
		UserID:     input.UserID,
		Body:       body,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

func (s *CommentService) List(ctx context.Context, taskID uint64) ([]models.TaskComment, error) {
	if err := ensureTaskExists(ctx, s.taskRepo, taskID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func ensureTaskExists(ctx context.Context, taskRepo repository.TaskRepository, taskID uint64) error {
	if _, err := taskRepo.FindByID(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}
	return nil
}
