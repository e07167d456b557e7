package models

import "time"

type OrganizationRole string

const (
	RoleOwner    OrganizationRole = "owner"
	RoleOperator OrganizationRole = "operator"
	RoleManager  OrganizationRole = "manager"
	RoleEmployee OrganizationRole = "employee"
)

// IsValid reports whether r is a known role.
func (r OrganizationRole) IsValid() bool {
	switch r {
	case RoleOwner, RoleOperator, RoleManager, RoleEmployee:
		return true
	default:
		return false
	}
}

// CanDispatch reports whether the role may create and assign tasks.
func (r OrganizationRole) CanDispatch() bool {
	return r == RoleOwner || r == RoleOperator
}

// CanViewReports reports whether the role may read time reports.
func (r OrganizationRole) CanViewReports() bool {
	return r == RoleOwner || r == RoleOperator || r == RoleManager
}

type OrganizationMember struct {
	OrganizationID uint64           `gorm:"primarykey" json:"organization_id"`
	UserID         uint64           `gorm:"primarykey" json:"user_id"`
	Role           OrganizationRole `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt       time.Time        `json:"joined_at"`

	// Relations
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
