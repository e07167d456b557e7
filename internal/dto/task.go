package dto

import (
	"time"

	"github.com/yukikurage/field-service-api/internal/models"
	"github.com/yukikurage/field-service-api/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// OrganizationDTO represents an organization in API responses
type OrganizationDTO struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID             uint64              `json:"id"`
	OrderNumber    int64               `json:"order_number"`
	OrganizationID uint64              `json:"organization_id"`
	CreatorID      uint64              `json:"creator_id"`
	Address        string              `json:"address"`
	Location       *models.Point       `json:"location"`
	WorkType       string              `json:"work_type"`
	Description    string              `json:"description"`
	Priority       models.TaskPriority `json:"priority"`
	CustomerName   string              `json:"customer_name"`
	CustomerPhone  string              `json:"customer_phone"`
	ScheduledTime  *time.Time          `json:"scheduled_time"`
	Status         models.TaskStatus   `json:"status"`
	EmployeeID     *uint64             `json:"employee_id"`
	Employee       *EmployeeSummaryDTO `json:"employee,omitempty"`

	EnRouteAt   *time.Time `json:"en_route_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`

	EnRouteLocation    *models.Point `json:"en_route_location"`
	StartLocation      *models.Point `json:"start_location"`
	CompletionLocation *models.Point `json:"completion_location"`

	PauseRecords []models.PauseRecord `json:"pause_records,omitempty"`
	NextStatuses []models.TaskStatus  `json:"next_statuses"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskListItemDTO represents a task in list responses (minimal data)
type TaskListItemDTO struct {
	ID            uint64              `json:"id"`
	OrderNumber   int64               `json:"order_number"`
	Address       string              `json:"address"`
	WorkType      string              `json:"work_type"`
	Priority      models.TaskPriority `json:"priority"`
	Status        models.TaskStatus   `json:"status"`
	ScheduledTime *time.Time          `json:"scheduled_time"`
	Employee      *EmployeeSummaryDTO `json:"employee,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskListItemDTO `json:"tasks"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int64             `json:"total_count"`
	TotalPages int               `json:"total_pages"`
}

// CreateTaskRequest is the body of POST /api/tasks
type CreateTaskRequest struct {
	OrganizationID uint64              `json:"organization_id" binding:"required"`
	Address        string              `json:"address" binding:"required,max=500"`
	Latitude       *float64            `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude      *float64            `json:"longitude" binding:"omitempty,min=-180,max=180"`
	WorkType       string              `json:"work_type" binding:"max=100"`
	Description    string              `json:"description"`
	Priority       models.TaskPriority `json:"priority"`
	CustomerName   string              `json:"customer_name" binding:"max=255"`
	CustomerPhone  string              `json:"customer_phone" binding:"max=50"`
	ScheduledTime  *time.Time          `json:"scheduled_time"`
	EmployeeID     *uint64             `json:"employee_id"`
}

// UpdateTaskRequest is the body of PATCH /api/tasks/:id. Absent fields are kept.
type UpdateTaskRequest struct {
	Address            *string              `json:"address" binding:"omitempty,max=500"`
	Latitude           *float64             `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude          *float64             `json:"longitude" binding:"omitempty,min=-180,max=180"`
	WorkType           *string              `json:"work_type" binding:"omitempty,max=100"`
	Description        *string              `json:"description"`
	Priority           *models.TaskPriority `json:"priority"`
	CustomerName       *string              `json:"customer_name" binding:"omitempty,max=255"`
	CustomerPhone      *string              `json:"customer_phone" binding:"omitempty,max=50"`
	ScheduledTime      *time.Time           `json:"scheduled_time"`
	ClearScheduledTime bool                 `json:"clear_scheduled_time"`
}

type AssignTaskRequest struct {
	EmployeeID uint64 `json:"employee_id" binding:"required"`
}

// TransitionRequest carries the target status and an optional fix.
type TransitionRequest struct {
	Status    models.TaskStatus `json:"status" binding:"required"`
	Latitude  *float64          `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude *float64          `json:"longitude" binding:"omitempty,min=-180,max=180"`
}

// Point returns the fix, or nil unless both coordinates are present.
func (r TransitionRequest) Point() *models.Point {
	return models.PointFrom(r.Latitude, r.Longitude)
}

type DraftTasksRequest struct {
	Text string `json:"text" binding:"required,max=5000"`
}

type CommentRequest struct {
	Body string `json:"body" binding:"required,max=4000"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
	}
}

// ToOrganizationDTO converts an Organization model to OrganizationDTO
func ToOrganizationDTO(org models.Organization, includeInviteCode bool) OrganizationDTO {
	dto := OrganizationDTO{
		ID:       org.ID,
		Name:     org.Name,
		Timezone: org.Timezone,
	}
	if includeInviteCode {
		dto.InviteCode = org.InviteCode
	}
	return dto
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task, next []models.TaskStatus) TaskDTO {
	dto := TaskDTO{
		ID:                 task.ID,
		OrderNumber:        task.OrderNumber,
		OrganizationID:     task.OrganizationID,
		CreatorID:          task.CreatorID,
		Address:            task.Address,
		Location:           models.PointFrom(task.Latitude, task.Longitude),
		WorkType:           task.WorkType,
		Description:        task.Description,
		Priority:           task.Priority,
		CustomerName:       task.CustomerName,
		CustomerPhone:      task.CustomerPhone,
		ScheduledTime:      task.ScheduledTime,
		Status:             task.Status,
		EmployeeID:         task.EmployeeID,
		EnRouteAt:          task.EnRouteAt,
		StartedAt:          task.StartedAt,
		CompletedAt:        task.CompletedAt,
		CancelledAt:        task.CancelledAt,
		EnRouteLocation:    models.PointFrom(task.EnRouteLatitude, task.EnRouteLongitude),
		StartLocation:      models.PointFrom(task.StartLatitude, task.StartLongitude),
		CompletionLocation: models.PointFrom(task.CompletionLatitude, task.CompletionLongitude),
		PauseRecords:       task.PauseRecords,
		NextStatuses:       next,
		CreatedAt:          task.CreatedAt,
		UpdatedAt:          task.UpdatedAt,
	}
	if dto.NextStatuses == nil {
		dto.NextStatuses = []models.TaskStatus{}
	}

	// Include employee if preloaded
	if task.Employee != nil {
		employee := ToEmployeeSummaryDTO(*task.Employee)
		dto.Employee = &employee
	}

	return dto
}

// ToTaskListItemDTO converts a Task model to TaskListItemDTO
func ToTaskListItemDTO(task models.Task) TaskListItemDTO {
	dto := TaskListItemDTO{
		ID:            task.ID,
		OrderNumber:   task.OrderNumber,
		Address:       task.Address,
		WorkType:      task.WorkType,
		Priority:      task.Priority,
		Status:        task.Status,
		ScheduledTime: task.ScheduledTime,
		CreatedAt:     task.CreatedAt,
	}

	if task.Employee != nil {
		employee := ToEmployeeSummaryDTO(*task.Employee)
		dto.Employee = &employee
	}

	return dto
}

// ToTaskListResponse wraps one page of tasks with its paging metadata
func ToTaskListResponse(tasks []models.Task, params utils.PaginationParams, totalCount int64) TaskListResponse {
	items := make([]TaskListItemDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskListItemDTO(task)
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       params.Page,
		PageSize:   params.Limit,
		TotalCount: totalCount,
		TotalPages: params.TotalPages(totalCount),
	}
}
