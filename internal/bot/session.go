// Package bot drives task execution from a Telegram chat. Each chat actor
// has at most one pending request for input.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/field-service-api/internal/models"
)

// WaitKind names the input a chat actor was asked for.
type WaitKind string

const (
	WaitLocationEnRoute    WaitKind = "location_en_route"
	WaitLocationStart      WaitKind = "location_start"
	WaitLocationCompletion WaitKind = "location_completion"
	WaitPhoto              WaitKind = "photo"
	WaitComment            WaitKind = "comment"
)

// InputKind classifies an incoming message.
type InputKind string

const (
	InputLocation InputKind = "location"
	InputPhoto    InputKind = "photo"
	InputText     InputKind = "text"
)

// Accepts reports whether input satisfies the wait.
func (k WaitKind) Accepts(input InputKind) bool {
	switch k {
	case WaitLocationEnRoute, WaitLocationStart, WaitLocationCompletion:
		return input == InputLocation
	case WaitPhoto:
		return input == InputPhoto
	case WaitComment:
		return input == InputText
	default:
		return false
	}
}

// TargetStatus is the status a location wait completes.
func (k WaitKind) TargetStatus() (models.TaskStatus, bool) {
	switch k {
	case WaitLocationEnRoute:
		return models.TaskStatusEnRoute, true
	case WaitLocationStart:
		return models.TaskStatusInProgress, true
	case WaitLocationCompletion:
		return models.TaskStatusCompleted, true
	default:
		return "", false
	}
}

// locationWaitFor maps a gated transition target to its wait kind.
func locationWaitFor(to models.TaskStatus) (WaitKind, bool) {
	switch to {
	case models.TaskStatusEnRoute:
		return WaitLocationEnRoute, true
	case models.TaskStatusInProgress:
		return WaitLocationStart, true
	case models.TaskStatusCompleted:
		return WaitLocationCompletion, true
	default:
		return "", false
	}
}

// Wait is a pending request for input.
type Wait struct {
	ActorID   int64     `json:"actor_id"`
	ChatID    int64     `json:"chat_id"`
	Kind      WaitKind  `json:"waiting_for"`
	TaskID    uint64    `json:"task_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists one Wait per actor. Get returns nil, nil when there is none.
type Store interface {
	Get(ctx context.Context, actorID int64) (*Wait, error)
	Put(ctx context.Context, wait Wait, ttl time.Duration) error
	Delete(ctx context.Context, actorID int64) error
}

type Sessions struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewSessions(store Store, ttl time.Duration) *Sessions {
	return &Sessions{store: store, ttl: ttl, now: time.Now}
}

// BeginWait records what the actor is expected to send next, replacing any
// earlier wait.
func (s *Sessions) BeginWait(ctx context.Context, actorID, chatID int64, kind WaitKind, taskID uint64) error {
	wait := Wait{ActorID: actorID, ChatID: chatID, Kind: kind, TaskID: taskID, CreatedAt: s.now()}
	if err := s.store.Put(ctx, wait, s.ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Pending returns the live wait of an actor. Expired waits are removed.
func (s *Sessions) Pending(ctx context.Context, actorID int64) (*Wait, error) {
	wait, err := s.store.Get(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if wait == nil {
		return nil, nil
	}
	if s.ttl > 0 && s.now().Sub(wait.CreatedAt) > s.ttl {
		if err := s.store.Delete(ctx, actorID); err != nil {
			return nil, fmt.Errorf("failed to drop expired session: %w", err)
		}
		return nil, nil
	}
	return wait, nil
}

// Resolve consumes the pending wait when input matches it. A mismatching
// input returns nil and leaves the wait in place.
func (s *Sessions) Resolve(ctx context.Context, actorID int64, input InputKind) (*Wait, error) {
	wait, err := s.Pending(ctx, actorID)
	if err != nil || wait == nil {
		return nil, err
	}
	if !wait.Kind.Accepts(input) {
		return nil, nil
	}
	if err := s.store.Delete(ctx, actorID); err != nil {
		return nil, fmt.Errorf("failed to clear session: %w", err)
	}
	return wait, nil
}

// Cancel drops any pending wait.
func (s *Sessions) Cancel(ctx context.Context, actorID int64) error {
	return s.store.Delete(ctx, actorID)
}
