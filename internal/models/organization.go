package models

import (
	"time"

	"gorm.io/gorm"
)

// Organization is a field-service company. Timezone is an IANA zone name used
// to cut daily reports; empty means the server default.
type Organization struct {
	ID         uint64         `gorm:"primarykey" json:"id"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	InviteCode string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"invite_code"`
	Timezone   string         `gorm:"type:varchar(64);not null;default:''" json:"timezone"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Members   []OrganizationMember `gorm:"foreignKey:OrganizationID" json:"-"`
	Employees []Employee           `gorm:"foreignKey:OrganizationID" json:"-"`
	Tasks     []Task               `gorm:"foreignKey:OrganizationID" json:"-"`
}

// Location resolves Timezone, falling back to def when unset or unknown.
func (o Organization) Location(def *time.Location) *time.Location {
	if o.Timezone == "" {
		return def
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return def
	}
	return loc
}
