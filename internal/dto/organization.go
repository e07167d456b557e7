package dto

import (
	"time"

	"github.com/yukikurage/field-service-api/internal/models"
)

// Permissions tells clients which screens to offer for a role.
type Permissions struct {
	CanDispatch    bool `json:"can_dispatch"`
	CanViewReports bool `json:"can_view_reports"`
	CanManage      bool `json:"can_manage"`
}

func permissionsFor(role models.OrganizationRole) Permissions {
	return Permissions{
		CanDispatch:    role.CanDispatch(),
		CanViewReports: role.CanViewReports(),
		CanManage:      role == models.RoleOwner,
	}
}

type OrganizationWithRoleDTO struct {
	OrganizationDTO
	Role        models.OrganizationRole `json:"role"`
	Permissions Permissions             `json:"permissions"`
}

type OrganizationMemberDTO struct {
	User     UserDTO                 `json:"user"`
	Role     models.OrganizationRole `json:"role"`
	JoinedAt time.Time               `json:"joined_at"`
}

// OrganizationDetailDTO is the organization page: members plus the caller's own role.
type OrganizationDetailDTO struct {
	OrganizationDTO
	Members     []OrganizationMemberDTO `json:"members"`
	YourRole    models.OrganizationRole `json:"your_role"`
	Permissions Permissions             `json:"permissions"`
}

func ToOrganizationWithRoleDTO(m models.OrganizationMember) OrganizationWithRoleDTO {
	return OrganizationWithRoleDTO{
		OrganizationDTO: ToOrganizationDTO(m.Organization, false),
		Role:            m.Role,
		Permissions:     permissionsFor(m.Role),
	}
}

func ToOrganizationMemberDTO(m models.OrganizationMember) OrganizationMemberDTO {
	return OrganizationMemberDTO{User: ToUserDTO(m.User), Role: m.Role, JoinedAt: m.JoinedAt}
}

// ToOrganizationDetailDTO hides the invite code from everyone but the owner.
func ToOrganizationDetailDTO(org models.Organization, members []models.OrganizationMember, role models.OrganizationRole) OrganizationDetailDTO {
	out := OrganizationDetailDTO{
		OrganizationDTO: ToOrganizationDTO(org, role == models.RoleOwner),
		Members:         make([]OrganizationMemberDTO, 0, len(members)),
		YourRole:        role,
		Permissions:     permissionsFor(role),
	}
	for _, m := range members {
		out.Members = append(out.Members, ToOrganizationMemberDTO(m))
	}
	return out
}
