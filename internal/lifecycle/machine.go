package lifecycle

import (
	"time"

	"github.com/yukikurage/field-service-api/internal/models"
)

// Request is one attempt to move a task to another status.
type Request struct {
	To      models.TaskStatus
	Channel Channel

	// Location is the fix sent with the request, if any.
	Location *models.Point

	// EmployeeID is the assignee for pending → assigned. When nil the task's
	// current EmployeeID is used.
	EmployeeID *uint64

	// ActivePause is the task's open pause record, if one exists.
	ActivePause *models.PauseRecord
}

// Outcome describes what an applied transition changed besides the task row.
type Outcome struct {
	From       models.TaskStatus
	To         models.TaskStatus
	At         time.Time
	OpenPause  bool
	ClosePause bool
}

// Machine is the single authority on task status changes.
type Machine struct {
	policy *Policy
}

// NewMachine creates a Machine gated by policy. A nil policy means DefaultPolicy.
func NewMachine(policy *Policy) *Machine {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Machine{policy: policy}
}

// Policy returns the location gate in use.
func (m *Machine) Policy() *Policy {
	return m.policy
}

// Check evaluates the transition table and every guard without touching task.
func (m *Machine) Check(task *models.Task, req Request) error {
	from := task.Status
	to := req.To

	if IsTerminal(from) || !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}

	switch {
	case to == models.TaskStatusAssigned:
		if req.EmployeeID == nil && task.EmployeeID == nil {
			return MissingDependency("assignee")
		}
	case from == models.TaskStatusInProgress && to == models.TaskStatusPaused:
		if req.ActivePause != nil {
			return ErrAlreadyPaused
		}
	case from == models.TaskStatusPaused && to == models.TaskStatusInProgress:
		if req.ActivePause == nil {
			return ErrNoActivePause
		}
	}

	channel := req.Channel
	if channel == "" {
		channel = ChannelWeb
	}
	if req.Location == nil && m.policy.RequireLocation(channel, from, to) {
		return &LocationError{From: from, To: to}
	}

	return nil
}

// Apply validates req against task and, on success, mutates task to reflect
// the new status: timestamps, audit coordinates and assignee.
func (m *Machine) Apply(task *models.Task, req Request, now time.Time) (Outcome, error) {
	if err := m.Check(task, req); err != nil {
		return Outcome{}, err
	}

	from := task.Status
	to := req.To
	at := notBefore(now, task, req.ActivePause)
	out := Outcome{From: from, To: to, At: at}

	switch to {
	case models.TaskStatusAssigned:
		if req.EmployeeID != nil {
			id := *req.EmployeeID
			task.EmployeeID = &id
		}
	case models.TaskStatusEnRoute:
		if task.EnRouteAt == nil {
			task.EnRouteAt = &at
		}
		if req.Location != nil {
			task.EnRouteLatitude, task.EnRouteLongitude = req.Location.Columns()
		}
	case models.TaskStatusInProgress:
		if from == models.TaskStatusPaused {
			out.ClosePause = true
			break
		}
		if task.StartedAt == nil {
			task.StartedAt = &at
		}
		if req.Location != nil {
			task.StartLatitude, task.StartLongitude = req.Location.Columns()
		}
	case models.TaskStatusPaused:
		out.OpenPause = true
	case models.TaskStatusCompleted:
		if task.CompletedAt == nil {
			task.CompletedAt = &at
		}
		if req.Location != nil {
			task.CompletionLatitude, task.CompletionLongitude = req.Location.Columns()
		}
	case models.TaskStatusCancelled:
		if task.CancelledAt == nil {
			task.CancelledAt = &at
		}
		out.ClosePause = req.ActivePause != nil
	}

	task.Status = to
	return out, nil
}

// notBefore keeps lifecycle timestamps monotonic when the clock steps back.
func notBefore(now time.Time, task *models.Task, active *models.PauseRecord) time.Time {
	latest := task.CreatedAt
	for _, ts := range []*time.Time{task.EnRouteAt, task.StartedAt, task.CompletedAt, task.CancelledAt} {
		if ts != nil && ts.After(latest) {
			latest = *ts
		}
	}
	if active != nil && active.PausedAt.After(latest) {
		latest = active.PausedAt
	}
	if now.Before(latest) {
		return latest
	}
	return now
}
