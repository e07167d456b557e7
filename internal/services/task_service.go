package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/field-service-api/internal/events"
	"github.com/yukikurage/field-service-api/internal/lifecycle"
	"github.com/yukikurage/field-service-api/internal/logger"
	"github.com/yukikurage/field-service-api/internal/models"
	"github.com/yukikurage/field-service-api/internal/reports"
	"github.com/yukikurage/field-service-api/internal/repository"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var (
	ErrNotOrganizationMember = errors.New("user is not a member of the organization")
	ErrTaskNotFound          = errors.New("task not found")
	ErrNotDispatcher         = errors.New("only owners and operators can dispatch tasks")
	ErrNotTaskAssignee       = errors.New("task is assigned to another employee")
	ErrAddressRequired       = errors.New("address is required")
	ErrInvalidPriority       = errors.New("invalid priority")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrTaskClosed            = errors.New("completed or cancelled tasks cannot be edited")
	ErrInvalidTaskAssignee   = errors.New("employee does not belong to the task's organization")
)

// TaskService is the one place task status changes happen. Both the HTTP
// handlers and the chat bot go through it.
type TaskService struct {
	taskRepo     repository.TaskRepository
	pauseRepo    repository.PauseRepository
	employeeRepo repository.EmployeeRepository
	orgRepo      repository.OrganizationRepository
	machine      *lifecycle.Machine
	publisher    events.Publisher
	drafter      TaskDrafter
	log          *logrus.Logger
	now          func() time.Time

	inflight singleflight.Group
}

// TaskServiceOption customizes a TaskService.
type TaskServiceOption func(*TaskService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TaskServiceOption {
	return func(s *TaskService) { s.now = now }
}

func WithLogger(log *logrus.Logger) TaskServiceOption {
	return func(s *TaskService) { s.log = log }
}

// WithDrafter enables AI drafting.
func WithDrafter(d TaskDrafter) TaskServiceOption {
	return func(s *TaskService) { s.drafter = d }
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo repository.TaskRepository,
	pauseRepo repository.PauseRepository,
	employeeRepo repository.EmployeeRepository,
	orgRepo repository.OrganizationRepository,
	machine *lifecycle.Machine,
	publisher events.Publisher,
	opts ...TaskServiceOption,
) *TaskService {
	if machine == nil {
		machine = lifecycle.NewMachine(nil)
	}
	s := &TaskService{
		taskRepo:     taskRepo,
		pauseRepo:    pauseRepo,
		employeeRepo: employeeRepo,
		orgRepo:      orgRepo,
		machine:      machine,
		publisher:    publisher,
		log:          logger.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = events.NewLogPublisher(s.log)
	}
	return s
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	UserID          uint64
	OrganizationID  *uint64
	Status          *models.TaskStatus
	ActiveOnly      bool
	EmployeeID      *uint64
	SortByScheduled bool
	Page            int
	PageSize        int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	OrganizationID uint64
	CreatorID      uint64
	Address        string
	Location       *models.Point
	WorkType       string
	Description    string
	Priority       models.TaskPriority
	CustomerName   string
	CustomerPhone  string
	ScheduledTime  *time.Time
	EmployeeID     *uint64
}

// UpdateTaskInput carries the descriptive fields to change. Nil means keep.
type UpdateTaskInput struct {
	Address            *string
	Location           *models.Point
	WorkType           *string
	Description        *string
	Priority           *models.TaskPriority
	CustomerName       *string
	CustomerPhone      *string
	ScheduledTime      *time.Time
	ClearScheduledTime bool
}

// TransitionInput is one status change request.
type TransitionInput struct {
	TaskID   uint64
	To       models.TaskStatus
	Channel  lifecycle.Channel
	Location *models.Point

	// EmployeeID names the assignee when moving to assigned.
	EmployeeID *uint64

	// ActorEmployeeID is set when a field employee acts on their own task.
	// The task must then be assigned to them.
	ActorEmployeeID *uint64
}

// ListTasks returns tasks accessible to a user based on the provided filters
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) ([]models.Task, int64, error) {
	orgIDs, err := s.resolveAccessibleOrganizationIDs(ctx, input.UserID, input.OrganizationID)
	if err != nil {
		return nil, 0, err
	}

	if len(orgIDs) == 0 {
		return []models.Task{}, 0, nil
	}

	filter := repository.TaskFilter{
		OrganizationIDs: orgIDs,
		Status:          input.Status,
		EmployeeID:      input.EmployeeID,
		SortByScheduled: input.SortByScheduled,
		Page:            input.Page,
		PageSize:        input.PageSize,
	}
	if input.ActiveOnly {
		filter.Statuses = []models.TaskStatus{
			models.TaskStatusAssigned, models.TaskStatusEnRoute,
			models.TaskStatusInProgress, models.TaskStatusPaused,
		}
	}

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with its assignee and pause ledger
func (s *TaskService) GetTask(ctx context.Context, taskID uint64) (*models.Task, error) {
	return s.findTask(ctx, taskID, "Employee", "PauseRecords")
}

// CreateTask validates and inserts a task. With an employee the task starts
// out assigned.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	address := strings.TrimSpace(input.Address)
	if address == "" {
		return nil, ErrAddressRequired
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if !input.Priority.IsValid() {
		return nil, ErrInvalidPriority
	}

	if err := s.ensureDispatcher(ctx, input.OrganizationID, input.CreatorID); err != nil {
		return nil, err
	}

	lat, lng := input.Location.Columns()
	task := &models.Task{
		OrganizationID: input.OrganizationID,
		CreatorID:      input.CreatorID,
		Address:        address,
		Latitude:       lat,
		Longitude:      lng,
		WorkType:       strings.TrimSpace(input.WorkType),
		Description:    input.Description,
		Priority:       input.Priority,
		CustomerName:   strings.TrimSpace(input.CustomerName),
		CustomerPhone:  strings.TrimSpace(input.CustomerPhone),
		ScheduledTime:  input.ScheduledTime,
		Status:         models.TaskStatusPending,
		CreatedAt:      s.now(),
	}

	if input.EmployeeID != nil {
		if err := s.ensureEmployeeInOrganization(ctx, *input.EmployeeID, input.OrganizationID); err != nil {
			return nil, err
		}
		if _, err := s.machine.Apply(task, lifecycle.Request{To: models.TaskStatusAssigned, EmployeeID: input.EmployeeID}, task.CreatedAt); err != nil {
			return nil, err
		}
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"task_id":         task.ID,
		"order_number":    task.OrderNumber,
		"organization_id": task.OrganizationID,
	}).Info("task created")

	return s.GetTask(ctx, task.ID)
}

// UpdateTask edits the descriptive fields of an open task
func (s *TaskService) UpdateTask(ctx context.Context, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if lifecycle.IsTerminal(task.Status) {
		return nil, ErrTaskClosed
	}

	if input.Address != nil {
		address := strings.TrimSpace(*input.Address)
		if address == "" {
			return nil, ErrAddressRequired
		}
		task.Address = address
	}
	if input.Location != nil {
		task.Latitude, task.Longitude = input.Location.Columns()
	}
	if input.WorkType != nil {
		task.WorkType = strings.TrimSpace(*input.WorkType)
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.CustomerName != nil {
		task.CustomerName = strings.TrimSpace(*input.CustomerName)
	}
	if input.CustomerPhone != nil {
		task.CustomerPhone = strings.TrimSpace(*input.CustomerPhone)
	}
	if input.ClearScheduledTime {
		task.ScheduledTime = nil
	} else if input.ScheduledTime != nil {
		task.ScheduledTime = input.ScheduledTime
	}

	if err := s.taskRepo.UpdateDetails(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.GetTask(ctx, task.ID)
}

// DeleteTask deletes a task when the actor may dispatch in its organization
func (s *TaskService) DeleteTask(ctx context.Context, taskID, actorID uint64) error {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return err
	}

	if task.CreatorID != actorID {
		if err := s.ensureDispatcher(ctx, task.OrganizationID, actorID); err != nil {
			return err
		}
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// Assign moves a pending task to assigned for employeeID
func (s *TaskService) Assign(ctx context.Context, taskID, employeeID uint64) (*models.Task, error) {
	return s.Transition(ctx, TransitionInput{
		TaskID:     taskID,
		To:         models.TaskStatusAssigned,
		Channel:    lifecycle.ChannelWeb,
		EmployeeID: &employeeID,
	})
}

// Transition applies one status change. Requests identical in every field
// arriving while one is in flight share its result; anything else goes
// through the conditional update on its own.
//
// The shared call is detached from the caller that started it, so one
// client going away does not fail the others. Each caller still stops
// waiting when its own ctx ends.
func (s *TaskService) Transition(ctx context.Context, input TransitionInput) (*models.Task, error) {
	if !input.To.IsValid() {
		return nil, ErrInvalidStatus
	}

	detached := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(input.flightKey(), func() (interface{}, error) {
		return s.transition(detached, input)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Callers sharing a flight must not mutate the same struct.
		task := *res.Val.(*models.Task)
		return &task, nil
	}
}

func (in TransitionInput) flightKey() string {
	return fmt.Sprintf("%d|%s|%s|%s|%s|%s",
		in.TaskID, in.To, in.Channel, optID(in.EmployeeID), optID(in.ActorEmployeeID), optPoint(in.Location))
}

func optID(id *uint64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatUint(*id, 10)
}

func optPoint(p *models.Point) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(p.Latitude, 'g', -1, 64) + "," + strconv.FormatFloat(p.Longitude, 'g', -1, 64)
}

// Pause opens a pause on an in-progress task
func (s *TaskService) Pause(ctx context.Context, taskID uint64, channel lifecycle.Channel, actorEmployeeID *uint64) (*models.Task, error) {
	active, err := s.pauseRepo.FindActive(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active pause: %w", err)
	}
	if active != nil {
		return nil, lifecycle.ErrAlreadyPaused
	}

	return s.Transition(ctx, TransitionInput{
		TaskID:          taskID,
		To:              models.TaskStatusPaused,
		Channel:         channel,
		ActorEmployeeID: actorEmployeeID,
	})
}

// Resume closes the open pause and returns the task to in_progress
func (s *TaskService) Resume(ctx context.Context, taskID uint64, channel lifecycle.Channel, actorEmployeeID *uint64) (*models.Task, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusPaused {
		return nil, lifecycle.ErrNoActivePause
	}

	return s.Transition(ctx, TransitionInput{
		TaskID:          taskID,
		To:              models.TaskStatusInProgress,
		Channel:         channel,
		ActorEmployeeID: actorEmployeeID,
	})
}

// TimeBreakdown returns the time accounting of a completed task
func (s *TaskService) TimeBreakdown(ctx context.Context, taskID uint64) (reports.Breakdown, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return reports.Breakdown{}, err
	}

	records, err := s.pauseRecords(ctx, taskID)
	if err != nil {
		return reports.Breakdown{}, err
	}

	return reports.Compute(task, lifecycle.TotalPausedMinutes(records))
}

// ListPauses returns the pause ledger of a task
func (s *TaskService) ListPauses(ctx context.Context, taskID uint64) ([]models.PauseRecord, error) {
	if _, err := s.findTask(ctx, taskID); err != nil {
		return nil, err
	}

	return s.pauseRecords(ctx, taskID)
}

// pauseRecords loads the ledger of a task and refuses one that breaks the
// single-open, non-overlapping rule.
func (s *TaskService) pauseRecords(ctx context.Context, taskID uint64) ([]models.PauseRecord, error) {
	records, err := s.pauseRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pause records: %w", err)
	}
	if err := lifecycle.ValidateLedger(records); err != nil {
		s.log.WithError(err).WithField("task_id", taskID).Error("inconsistent pause ledger")
		return nil, fmt.Errorf("task %d: %w", taskID, err)
	}
	return records, nil
}

func (s *TaskService) transition(ctx context.Context, input TransitionInput) (*models.Task, error) {
	task, err := s.findTask(ctx, input.TaskID)
	if err != nil {
		return nil, err
	}

	if input.ActorEmployeeID != nil && (task.EmployeeID == nil || *task.EmployeeID != *input.ActorEmployeeID) {
		return nil, ErrNotTaskAssignee
	}
	if input.EmployeeID != nil {
		if err := s.ensureEmployeeInOrganization(ctx, *input.EmployeeID, task.OrganizationID); err != nil {
			return nil, err
		}
	}

	active, err := s.pauseRepo.FindActive(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active pause: %w", err)
	}

	from := task.Status
	req := lifecycle.Request{
		To:          input.To,
		Channel:     input.Channel,
		Location:    input.Location,
		EmployeeID:  input.EmployeeID,
		ActivePause: active,
	}

	out, err := s.machine.Apply(task, req, s.now())
	if err != nil {
		return nil, err
	}

	op := repository.PauseOp{Open: out.OpenPause, Close: out.ClosePause, At: out.At}
	if err := s.taskRepo.ApplyTransition(ctx, task, from, op); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			current, findErr := s.findTask(ctx, task.ID)
			if findErr != nil {
				return nil, findErr
			}
			return nil, &lifecycle.TransitionError{From: current.Status, To: input.To}
		}
		if errors.Is(err, lifecycle.ErrNoActivePause) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to apply transition: %w", err)
	}

	log := s.log.WithFields(logrus.Fields{
		"task_id": task.ID,
		"from":    from,
		"to":      out.To,
		"channel": input.Channel,
	})
	log.Info("task status changed")

	s.syncEmployee(ctx, task, out, input.Location, log)

	event := events.NewStatusChanged(task, from, string(input.Channel), input.Location, out.At)
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Warn("failed to publish status change")
	}

	return s.GetTask(ctx, task.ID)
}

// syncEmployee keeps the assignee's status and last position in step with
// the task. Failures are logged and never undo the transition.
func (s *TaskService) syncEmployee(ctx context.Context, task *models.Task, out lifecycle.Outcome, loc *models.Point, log *logrus.Entry) {
	if task.EmployeeID == nil {
		return
	}
	employeeID := *task.EmployeeID

	var status models.EmployeeStatus
	switch {
	case out.To == models.TaskStatusEnRoute:
		status = models.EmployeeBusy
	case out.To == models.TaskStatusInProgress && out.From != models.TaskStatusPaused:
		status = models.EmployeeBusy
	case out.To == models.TaskStatusCompleted, out.To == models.TaskStatusCancelled:
		status = models.EmployeeAvailable
	}

	if status != "" {
		if err := s.employeeRepo.UpdateStatus(ctx, employeeID, status); err != nil {
			log.WithError(err).WithField("employee_id", employeeID).Warn("failed to update employee status")
		}
	}

	if loc != nil {
		if err := s.employeeRepo.UpdateLocation(ctx, employeeID, *loc, out.At); err != nil {
			log.WithError(err).WithField("employee_id", employeeID).Warn("failed to update employee location")
		}
	}
}

func (s *TaskService) findTask(ctx context.Context, taskID uint64, preload ...string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// resolveAccessibleOrganizationIDs returns the organization IDs the user can access
func (s *TaskService) resolveAccessibleOrganizationIDs(ctx context.Context, userID uint64, organizationID *uint64) ([]uint64, error) {
	if organizationID != nil {
		if _, err := s.findMember(ctx, *organizationID, userID); err != nil {
			return nil, err
		}
		return []uint64{*organizationID}, nil
	}

	memberships, err := s.orgRepo.ListMembersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch organization memberships: %w", err)
	}

	orgIDs := make([]uint64, 0, len(memberships))
	for _, m := range memberships {
		orgIDs = append(orgIDs, m.OrganizationID)
	}

	return orgIDs, nil
}

func (s *TaskService) findMember(ctx context.Context, orgID, userID uint64) (*models.OrganizationMember, error) {
	member, err := s.orgRepo.FindMember(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotOrganizationMember
		}
		return nil, fmt.Errorf("failed to verify organization membership: %w", err)
	}
	return member, nil
}

func (s *TaskService) ensureDispatcher(ctx context.Context, orgID, userID uint64) error {
	member, err := s.findMember(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if !member.Role.CanDispatch() {
		return ErrNotDispatcher
	}
	return nil
}

func (s *TaskService) ensureEmployeeInOrganization(ctx context.Context, employeeID, orgID uint64) error {
	employee, err := s.employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidTaskAssignee
		}
		return fmt.Errorf("failed to find employee: %w", err)
	}
	if employee.OrganizationID != orgID {
		return ErrInvalidTaskAssignee
	}
	return nil
}
