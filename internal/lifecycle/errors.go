package lifecycle

import (
	"errors"
	"fmt"

	"github.com/yukikurage/field-service-api/internal/models"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMissingLocation   = errors.New("location is required for this transition")
	ErrAlreadyPaused     = errors.New("task is already paused")
	ErrNoActivePause     = errors.New("task has no active pause")
	ErrMissingDependency = errors.New("missing dependency")
)

// TransitionError identifies a rejected status change.
type TransitionError struct {
	From models.TaskStatus
	To   models.TaskStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// LocationError identifies a location-gated transition attempted without a fix.
type LocationError struct {
	From models.TaskStatus
	To   models.TaskStatus
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("location is required to move from %s to %s", e.From, e.To)
}

func (e *LocationError) Unwrap() error { return ErrMissingLocation }

// DependencyError names a collaborator that an operation could not do without.
type DependencyError struct {
	What string
}

func (e *DependencyError) Error() string { return "missing dependency: " + e.What }

func (e *DependencyError) Unwrap() error { return ErrMissingDependency }

// MissingDependency returns a DependencyError for what.
func MissingDependency(what string) error {
	return &DependencyError{What: what}
}
