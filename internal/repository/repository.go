package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/field-service-api/internal/models"
)

// ErrStaleStatus is returned by ApplyTransition when the task no longer has
// the status the caller checked.
var ErrStaleStatus = errors.New("task status changed concurrently")

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create assigns the next order number of the organization and inserts the task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// UpdateDetails writes the editable descriptive fields of a task
	UpdateDetails(ctx context.Context, task *models.Task) error

	// Delete soft deletes a task
	Delete(ctx context.Context, id uint64) error

	// ApplyTransition writes the lifecycle columns of task if its stored status
	// still equals expected, together with the pause ledger change.
	ApplyTransition(ctx context.Context, task *models.Task, expected models.TaskStatus, op PauseOp) error

	// ListCompleted returns completed tasks with their pause records and employee
	ListCompleted(ctx context.Context, query CompletedQuery) ([]models.Task, error)
}

// PauseOp is the ledger write that accompanies a transition.
type PauseOp struct {
	Open  bool
	Close bool
	At    time.Time
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	OrganizationIDs []uint64
	Status          *models.TaskStatus
	Statuses        []models.TaskStatus
	EmployeeID      *uint64
	SortByScheduled bool
	Page            int
	PageSize        int
}

// CompletedQuery narrows the tasks fed to reports
type CompletedQuery struct {
	OrganizationID uint64
	EmployeeID     *uint64
	CompletedFrom  *time.Time
	CompletedTo    *time.Time
}

// PauseRepository defines the interface for pause ledger access
type PauseRepository interface {
	// ListByTask returns the pause records of a task ordered by paused_at
	ListByTask(ctx context.Context, taskID uint64) ([]models.PauseRecord, error)

	// FindActive returns the open pause of a task, or nil when there is none
	FindActive(ctx context.Context, taskID uint64) (*models.PauseRecord, error)
}

// EmployeeRepository defines the interface for employee data access
type EmployeeRepository interface {
	Create(ctx context.Context, employee *models.Employee) error
	FindByID(ctx context.Context, id uint64) (*models.Employee, error)
	FindByUser(ctx context.Context, organizationID, userID uint64) (*models.Employee, error)
	FindByTelegramUserID(ctx context.Context, telegramUserID int64) (*models.Employee, error)
	List(ctx context.Context, filter EmployeeFilter) ([]models.Employee, error)
	Update(ctx context.Context, employee *models.Employee) error
	UpdateStatus(ctx context.Context, id uint64, status models.EmployeeStatus) error
	UpdateLocation(ctx context.Context, id uint64, point models.Point, at time.Time) error
}

// EmployeeFilter holds filtering options for listing employees
type EmployeeFilter struct {
	OrganizationID uint64
	Status         *models.EmployeeStatus
}

// PhotoRepository defines the interface for task photo metadata
type PhotoRepository interface {
	Create(ctx context.Context, photo *models.TaskPhoto) error
	ListByTask(ctx context.Context, taskID uint64) ([]models.TaskPhoto, error)
}

// CommentRepository defines the interface for task comments
type CommentRepository interface {
	Create(ctx context.Context, comment *models.TaskComment) error
	ListByTask(ctx context.Context, taskID uint64) ([]models.TaskComment, error)
}

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// Create creates a new organization
	Create(ctx context.Context, org *models.Organization) error

	// CreateWithOwner creates an organization and its owner membership atomically
	CreateWithOwner(ctx context.Context, org *models.Organization, member *models.OrganizationMember) error

	// FindByID finds an organization by ID
	FindByID(ctx context.Context, id uint64) (*models.Organization, error)

	// FindByInviteCode finds an organization by invite code
	FindByInviteCode(ctx context.Context, code string) (*models.Organization, error)

	// Update updates an organization
	Update(ctx context.Context, org *models.Organization) error

	// Delete deletes an organization and all related data
	Delete(ctx context.Context, id uint64) error

	// AddMember adds a member to an organization
	AddMember(ctx context.Context, member *models.OrganizationMember) error

	// UpdateMemberRole changes the role of a member
	UpdateMemberRole(ctx context.Context, organizationID, userID uint64, role models.OrganizationRole) error

	// RemoveMember removes a member from an organization
	RemoveMember(ctx context.Context, organizationID, userID uint64) error

	// FindMember finds a specific organization member
	FindMember(ctx context.Context, organizationID, userID uint64) (*models.OrganizationMember, error)

	// ListMembersByUserID lists all organizations a user is a member of
	ListMembersByUserID(ctx context.Context, userID uint64) ([]models.OrganizationMember, error)

	// ListMembers lists all members of an organization
	ListMembers(ctx context.Context, organizationID uint64) ([]models.OrganizationMember, error)
}

// UserRepository is account storage
type UserRepository interface {
	CreateWithWorkspace(ctx context.Context, user *models.User, ws Workspace) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindWithEmployeeProfiles(ctx context.Context, id uint64) (*models.User, error)
}
