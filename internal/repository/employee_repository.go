package repository

import (
	"context"
	"time"

	"github.com/yukikurage/field-service-api/internal/models"
	"gorm.io/gorm"
)

// GormEmployeeRepository is a GORM implementation of EmployeeRepository
type GormEmployeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository creates a new EmployeeRepository
func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &GormEmployeeRepository{db: db}
}

func (r *GormEmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	return r.db.WithContext(ctx).Create(employee).Error
}

func (r *GormEmployeeRepository) FindByID(ctx context.Context, id uint64) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.WithContext(ctx).First(&employee, id).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

// FindByUser finds the employee record a user holds inside an organization
func (r *GormEmployeeRepository) FindByUser(ctx context.Context, organizationID, userID uint64) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

// FindByTelegramUserID resolves a chat actor to an employee
func (r *GormEmployeeRepository) FindByTelegramUserID(ctx context.Context, telegramUserID int64) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.WithContext(ctx).
		Where("telegram_user_id = ?", telegramUserID).
		First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *GormEmployeeRepository) List(ctx context.Context, filter EmployeeFilter) ([]models.Employee, error) {
	var employees []models.Employee
	query := r.db.WithContext(ctx).Where("organization_id = ?", filter.OrganizationID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if err := query.Order("full_name ASC").Order("id ASC").Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *GormEmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	return r.db.WithContext(ctx).
		Model(employee).
		Select("FullName", "Phone", "TelegramUserID").
		Updates(employee).Error
}

func (r *GormEmployeeRepository) UpdateStatus(ctx context.Context, id uint64, status models.EmployeeStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Employee{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateLocation stores the last known position of an employee
func (r *GormEmployeeRepository) UpdateLocation(ctx context.Context, id uint64, point models.Point, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Employee{}).Where("id = ?", id).Updates(map[string]interface{}{
		"latitude":            point.Latitude,
		"longitude":           point.Longitude,
		"location_updated_at": at,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
