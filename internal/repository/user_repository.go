package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/field-service-api/internal/models"
	"gorm.io/gorm"
)

// Signup transaction failures, by step.
var (
	ErrCreateUser               = errors.New("user repository: create user failed")
	ErrCreateOrganization       = errors.New("user repository: create organization failed")
	ErrCreateOrganizationMember = errors.New("user repository: create organization member failed")
)

// Workspace is what a new account starts with: its own organization and
// the owner membership linking the two.
type Workspace struct {
	Organization *models.Organization
	Membership   *models.OrganizationMember
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// CreateWithWorkspace inserts the user, the organization and the membership
// in one transaction and fills in the generated ids.
func (r *GormUserRepository) CreateWithWorkspace(ctx context.Context, user *models.User, ws Workspace) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateUser, err)
		}
		if err := tx.Create(ws.Organization).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateOrganization, err)
		}

		ws.Membership.OrganizationID = ws.Organization.ID
		ws.Membership.UserID = user.ID
		if err := tx.Create(ws.Membership).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateOrganizationMember, err)
		}
		return nil
	})
}

// FindByUsername expects an already normalized username.
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(r.db.WithContext(ctx).Where("username = ?", username))
}

// FindWithEmployeeProfiles loads the user together with the field employee
// records linked to the account.
func (r *GormUserRepository) FindWithEmployeeProfiles(ctx context.Context, id uint64) (*models.User, error) {
	return r.first(r.db.WithContext(ctx).Preload("EmployeeProfiles").Where("id = ?", id))
}

func (r *GormUserRepository) first(q *gorm.DB) (*models.User, error) {
	var user models.User
	if err := q.First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
