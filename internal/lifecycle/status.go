// Package lifecycle holds the task status machine shared by the web API and
// the chat bot: the transition table, the per-channel location gate and the
// pause ledger rules.
package lifecycle

import "github.com/yukikurage/field-service-api/internal/models"

// transitions defines the allowed status transitions.
// Flow: pending → assigned → en_route → in_progress ⇄ paused → completed
//
//	assigned ──────────────→ in_progress (direct start)
//	any non-terminal ──────→ cancelled
var transitions = map[models.TaskStatus][]models.TaskStatus{
	models.TaskStatusPending:    {models.TaskStatusAssigned, models.TaskStatusCancelled},
	models.TaskStatusAssigned:   {models.TaskStatusEnRoute, models.TaskStatusInProgress, models.TaskStatusCancelled},
	models.TaskStatusEnRoute:    {models.TaskStatusInProgress, models.TaskStatusCancelled},
	models.TaskStatusInProgress: {models.TaskStatusPaused, models.TaskStatusCompleted, models.TaskStatusCancelled},
	models.TaskStatusPaused:     {models.TaskStatusInProgress, models.TaskStatusCancelled},
	models.TaskStatusCompleted:  {},
	models.TaskStatusCancelled:  {},
}

// CanTransition returns true if a task in status from may move to status to.
func CanTransition(from, to models.TaskStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for statuses that accept no further transitions.
func IsTerminal(s models.TaskStatus) bool {
	return s == models.TaskStatusCompleted || s == models.TaskStatusCancelled
}

// IsActive returns true while a field employee is working on the task.
func IsActive(s models.TaskStatus) bool {
	return s == models.TaskStatusEnRoute || s == models.TaskStatusInProgress || s == models.TaskStatusPaused
}

// Next returns the statuses reachable from s, in table order.
func Next(s models.TaskStatus) []models.TaskStatus {
	next := transitions[s]
	out := make([]models.TaskStatus, len(next))
	copy(out, next)
	return out
}
