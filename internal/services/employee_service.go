package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/field-service-api/internal/models"
	"github.com/yukikurage/field-service-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrEmployeeNotFound      = errors.New("employee not found")
	ErrEmployeeExists        = errors.New("user already has an employee record in this organization")
	ErrFullNameRequired      = errors.New("full name is required")
	ErrInvalidEmployeeStatus = errors.New("invalid employee status")
)

// EmployeeService manages the field staff of organizations.
type EmployeeService struct {
	employeeRepo repository.EmployeeRepository
	orgRepo      repository.OrganizationRepository
	now          func() time.Time
}

func NewEmployeeService(employeeRepo repository.EmployeeRepository, orgRepo repository.OrganizationRepository) *EmployeeService {
	return &EmployeeService{
		employeeRepo: employeeRepo,
		orgRepo:      orgRepo,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type CreateEmployeeInput struct {
	OrganizationID uint64
	UserID         uint64
	FullName       string
	Phone          string
	TelegramUserID *int64
}

type UpdateEmployeeInput struct {
	FullName       *string
	Phone          *string
	TelegramUserID *int64
	UnlinkTelegram bool
}

// CreateEmployee registers a member of the organization as field staff
func (s *EmployeeService) CreateEmployee(ctx context.Context, input CreateEmployeeInput) (*models.Employee, error) {
	name := strings.TrimSpace(input.FullName)
	if name == "" {
		return nil, ErrFullNameRequired
	}

	if _, err := s.orgRepo.FindMember(ctx, input.OrganizationID, input.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotOrganizationMember
		}
		return nil, fmt.Errorf("failed to verify organization membership: %w", err)
	}

	if _, err := s.employeeRepo.FindByUser(ctx, input.OrganizationID, input.UserID); err == nil {
		return nil, ErrEmployeeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check employee: %w", err)
	}

	employee := &models.Employee{
		OrganizationID: input.OrganizationID,
		UserID:         input.UserID,
		FullName:       name,
		Phone:          strings.TrimSpace(input.Phone),
		Status:         models.EmployeeAvailable,
		TelegramUserID: input.TelegramUserID,
	}

	if err := s.employeeRepo.Create(ctx, employee); err != nil {
		return nil, fmt.Errorf("failed to create employee: %w", err)
	}
	return employee, nil
}

func (s *EmployeeService) ListEmployees(ctx context.Context, orgID uint64, status *models.EmployeeStatus) ([]models.Employee, error) {
	if status != nil && !status.IsValid() {
		return nil, ErrInvalidEmployeeStatus
	}

	employees, err := s.employeeRepo.List(ctx, repository.EmployeeFilter{OrganizationID: orgID, Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}

func (s *EmployeeService) GetEmployee(ctx context.Context, id uint64) (*models.Employee, error) {
	employee, err := s.employeeRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to find employee: %w", err)
	}
	return employee, nil
}

// FindForUser returns the employee record of userID in orgID, if any
func (s *EmployeeService) FindForUser(ctx context.Context, orgID, userID uint64) (*models.Employee, error) {
	employee, err := s.employeeRepo.FindByUser(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to find employee: %w", err)
	}
	return employee, nil
}

// FindByTelegramUser resolves a chat actor
func (s *EmployeeService) FindByTelegramUser(ctx context.Context, telegramUserID int64) (*models.Employee, error) {
	employee, err := s.employeeRepo.FindByTelegramUserID(ctx, telegramUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to find employee: %w", err)
	}
	return employee, nil
}

func (s *EmployeeService) UpdateEmployee(ctx context.Context, id uint64, input UpdateEmployeeInput) (*models.Employee, error) {
	employee, err := s.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, ErrFullNameRequired
		}
		employee.FullName = name
	}
	if input.Phone != nil {
		employee.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.UnlinkTelegram {
		employee.TelegramUserID = nil
	} else if input.TelegramUserID != nil {
		employee.TelegramUserID = input.TelegramUserID
	}

	if err := s.employeeRepo.Update(ctx, employee); err != nil {
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}
	return employee, nil
}

// UpdateLocation records a position report. Coordinates are stored as sent.
func (s *EmployeeService) UpdateLocation(ctx context.Context, id uint64, point models.Point) (*models.Employee, error) {
	if err := s.employeeRepo.UpdateLocation(ctx, id, point, s.now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to update location: %w", err)
	}
	return s.GetEmployee(ctx, id)
}

func (s *EmployeeService) SetStatus(ctx context.Context, id uint64, status models.EmployeeStatus) (*models.Employee, error) {
	if !status.IsValid() {
		return nil, ErrInvalidEmployeeStatus
	}
	if err := s.employeeRepo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	return s.GetEmployee(ctx, id)
}
