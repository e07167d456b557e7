package dto

import (
	"time"

	"github.com/yukikurage/field-service-api/internal/models"
)

// EmployeeSummaryDTO is the assignee as embedded in task responses
type EmployeeSummaryDTO struct {
	ID       uint64                `json:"id"`
	FullName string                `json:"full_name"`
	Phone    string                `json:"phone"`
	Status   models.EmployeeStatus `json:"status"`
}

// EmployeeDTO represents an employee in API responses
type EmployeeDTO struct {
	ID                uint64                `json:"id"`
	OrganizationID    uint64                `json:"organization_id"`
	UserID            uint64                `json:"user_id"`
	FullName          string                `json:"full_name"`
	Phone             string                `json:"phone"`
	Status            models.EmployeeStatus `json:"status"`
	Location          *models.Point         `json:"location"`
	LocationUpdatedAt *time.Time            `json:"location_updated_at"`
	TelegramLinked    bool                  `json:"telegram_linked"`
	CreatedAt         time.Time             `json:"created_at"`
}

type CreateEmployeeRequest struct {
	UserID         uint64 `json:"user_id" binding:"required"`
	FullName       string `json:"full_name" binding:"required,max=255"`
	Phone          string `json:"phone" binding:"max=50"`
	TelegramUserID *int64 `json:"telegram_user_id"`
}

type UpdateEmployeeRequest struct {
	FullName       *string `json:"full_name" binding:"omitempty,max=255"`
	Phone          *string `json:"phone" binding:"omitempty,max=50"`
	TelegramUserID *int64  `json:"telegram_user_id"`
	UnlinkTelegram bool    `json:"unlink_telegram"`
}

type LocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"required,min=-180,max=180"`
}

type EmployeeStatusRequest struct {
	Status models.EmployeeStatus `json:"status" binding:"required"`
}

func ToEmployeeSummaryDTO(e models.Employee) EmployeeSummaryDTO {
	return EmployeeSummaryDTO{ID: e.ID, FullName: e.FullName, Phone: e.Phone, Status: e.Status}
}

func ToEmployeeDTO(e models.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:                e.ID,
		OrganizationID:    e.OrganizationID,
		UserID:            e.UserID,
		FullName:          e.FullName,
		Phone:             e.Phone,
		Status:            e.Status,
		Location:          models.PointFrom(e.Latitude, e.Longitude),
		LocationUpdatedAt: e.LocationUpdatedAt,
		TelegramLinked:    e.TelegramUserID != nil,
		CreatedAt:         e.CreatedAt,
	}
}

// ProfileDTO is the signed-in account as the mobile client sees it.
type ProfileDTO struct {
	UserDTO
	EmployeeProfiles []EmployeeDTO `json:"employee_profiles"`
}

func ToProfileDTO(user models.User) ProfileDTO {
	out := ProfileDTO{UserDTO: ToUserDTO(user), EmployeeProfiles: make([]EmployeeDTO, 0, len(user.EmployeeProfiles))}
	for _, e := range user.EmployeeProfiles {
		out.EmployeeProfiles = append(out.EmployeeProfiles, ToEmployeeDTO(e))
	}
	return out
}
