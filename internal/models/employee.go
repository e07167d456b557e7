package models

import (
	"time"

	"gorm.io/gorm"
)

type EmployeeStatus string

const (
	EmployeeAvailable EmployeeStatus = "available"
	EmployeeBusy      EmployeeStatus = "busy"
	EmployeeOffline   EmployeeStatus = "offline"
)

// IsValid reports whether s is a known employee status.
func (s EmployeeStatus) IsValid() bool {
	return s == EmployeeAvailable || s == EmployeeBusy || s == EmployeeOffline
}

type Employee struct {
	ID                uint64         `gorm:"primarykey" json:"id"`
	UserID            uint64         `gorm:"not null;uniqueIndex:idx_employees_org_user" json:"user_id"`
	OrganizationID    uint64         `gorm:"not null;uniqueIndex:idx_employees_org_user" json:"organization_id"`
	FullName          string         `gorm:"type:varchar(255);not null" json:"full_name"`
	Phone             string         `gorm:"type:varchar(50)" json:"phone"`
	Status            EmployeeStatus `gorm:"type:varchar(20);not null;default:'available'" json:"status"`
	Latitude          *float64       `json:"latitude"`
	Longitude         *float64       `json:"longitude"`
	LocationUpdatedAt *time.Time     `json:"location_updated_at"`
	TelegramUserID    *int64         `gorm:"uniqueIndex" json:"telegram_user_id,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}
