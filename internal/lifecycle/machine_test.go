package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/field-service-api/internal/models"
)

var (
	t0   = time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC)
	here = &models.Point{Latitude: 55.75, Longitude: 37.61}
)

func uptr(v uint64) *uint64 { return &v }

func newTask(status models.TaskStatus) *models.Task {
	return &models.Task{ID: 1, Status: status, CreatedAt: t0, EmployeeID: uptr(7)}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name   string
		from   models.TaskStatus
		to     models.TaskStatus
		expect bool
	}{
		{"pending -> assigned", models.TaskStatusPending, models.TaskStatusAssigned, true},
		{"pending -> in_progress", models.TaskStatusPending, models.TaskStatusInProgress, false},
		{"assigned -> en_route", models.TaskStatusAssigned, models.TaskStatusEnRoute, true},
		{"assigned -> in_progress", models.TaskStatusAssigned, models.TaskStatusInProgress, true},
		{"assigned -> completed", models.TaskStatusAssigned, models.TaskStatusCompleted, false},
		{"en_route -> in_progress", models.TaskStatusEnRoute, models.TaskStatusInProgress, true},
		{"en_route -> assigned", models.TaskStatusEnRoute, models.TaskStatusAssigned, false},
		{"in_progress -> paused", models.TaskStatusInProgress, models.TaskStatusPaused, true},
		{"in_progress -> completed", models.TaskStatusInProgress, models.TaskStatusCompleted, true},
		{"paused -> in_progress", models.TaskStatusPaused, models.TaskStatusInProgress, true},
		{"paused -> completed", models.TaskStatusPaused, models.TaskStatusCompleted, false},
		{"paused -> cancelled", models.TaskStatusPaused, models.TaskStatusCancelled, true},
		{"completed -> cancelled", models.TaskStatusCompleted, models.TaskStatusCancelled, false},
		{"cancelled -> pending", models.TaskStatusCancelled, models.TaskStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, CanTransition(tt.from, tt.to))
		})
	}
}

func TestApply_TerminalStatesRejectEverything(t *testing.T) {
	m := NewMachine(nil)
	all := []models.TaskStatus{
		models.TaskStatusPending, models.TaskStatusAssigned, models.TaskStatusEnRoute,
		models.TaskStatusInProgress, models.TaskStatusPaused, models.TaskStatusCompleted,
		models.TaskStatusCancelled,
	}

	for _, terminal := range []models.TaskStatus{models.TaskStatusCompleted, models.TaskStatusCancelled} {
		for _, to := range all {
			task := newTask(terminal)
			_, err := m.Apply(task, Request{To: to, Location: here, ActivePause: &models.PauseRecord{}}, t0)

			var te *TransitionError
			require.ErrorAs(t, err, &te, "%s -> %s", terminal, to)
			assert.Equal(t, terminal, te.From)
			assert.Equal(t, to, te.To)
			assert.Equal(t, terminal, task.Status)
		}
	}
}

func TestApply_CompleteTwiceFails(t *testing.T) {
	m := NewMachine(nil)
	task := newTask(models.TaskStatusInProgress)
	task.StartedAt = &t0

	_, err := m.Apply(task, Request{To: models.TaskStatusCompleted}, t0.Add(time.Hour))
	require.NoError(t, err)

	_, err = m.Apply(task, Request{To: models.TaskStatusCompleted}, t0.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, t0.Add(time.Hour), *task.CompletedAt)
}

func TestApply_AssignRequiresAssignee(t *testing.T) {
	m := NewMachine(nil)
	task := &models.Task{Status: models.TaskStatusPending, CreatedAt: t0}

	_, err := m.Apply(task, Request{To: models.TaskStatusAssigned}, t0)
	assert.ErrorIs(t, err, ErrMissingDependency)

	_, err = m.Apply(task, Request{To: models.TaskStatusAssigned, EmployeeID: uptr(3)}, t0)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusAssigned, task.Status)
	assert.Equal(t, uint64(3), *task.EmployeeID)
}

func TestApply_LocationGatePerChannel(t *testing.T) {
	m := NewMachine(DefaultPolicy())

	web := newTask(models.TaskStatusAssigned)
	_, err := m.Apply(web, Request{To: models.TaskStatusEnRoute, Channel: ChannelWeb}, t0)
	require.NoError(t, err)
	assert.Nil(t, web.EnRouteLatitude)

	bot := newTask(models.TaskStatusAssigned)
	_, err = m.Apply(bot, Request{To: models.TaskStatusEnRoute, Channel: ChannelBot}, t0)
	var le *LocationError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, ErrMissingLocation)
	assert.Equal(t, models.TaskStatusAssigned, bot.Status)

	_, err = m.Apply(bot, Request{To: models.TaskStatusEnRoute, Channel: ChannelBot, Location: here}, t0)
	require.NoError(t, err)
	assert.Equal(t, 55.75, *bot.EnRouteLatitude)
	assert.Equal(t, 37.61, *bot.EnRouteLongitude)

	// Arrival on site is gated for both channels.
	_, err = m.Apply(web, Request{To: models.TaskStatusInProgress, Channel: ChannelWeb}, t0)
	assert.ErrorIs(t, err, ErrMissingLocation)
}

func TestApply_PauseGuards(t *testing.T) {
	m := NewMachine(nil)

	task := newTask(models.TaskStatusInProgress)
	_, err := m.Apply(task, Request{To: models.TaskStatusPaused, ActivePause: &models.PauseRecord{PausedAt: t0}}, t0)
	assert.ErrorIs(t, err, ErrAlreadyPaused)

	out, err := m.Apply(task, Request{To: models.TaskStatusPaused}, t0)
	require.NoError(t, err)
	assert.True(t, out.OpenPause)

	_, err = m.Apply(task, Request{To: models.TaskStatusInProgress}, t0)
	assert.ErrorIs(t, err, ErrNoActivePause)
	assert.Equal(t, models.TaskStatusPaused, task.Status)

	out, err = m.Apply(task, Request{To: models.TaskStatusInProgress, ActivePause: &models.PauseRecord{PausedAt: t0}}, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, out.ClosePause)
	assert.Nil(t, task.StartedAt, "resuming must not touch started_at")
}

func TestApply_CancelWhilePausedClosesPause(t *testing.T) {
	m := NewMachine(nil)
	task := newTask(models.TaskStatusPaused)

	out, err := m.Apply(task, Request{To: models.TaskStatusCancelled, ActivePause: &models.PauseRecord{PausedAt: t0}}, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, out.ClosePause)
	assert.Equal(t, models.TaskStatusCancelled, task.Status)
	require.NotNil(t, task.CancelledAt)
}

func TestApply_TimestampsStayMonotonic(t *testing.T) {
	m := NewMachine(nil)
	task := newTask(models.TaskStatusAssigned)

	_, err := m.Apply(task, Request{To: models.TaskStatusInProgress}, t0.Add(time.Hour))
	require.NoError(t, err)

	// clock stepped back
	out, err := m.Apply(task, Request{To: models.TaskStatusCompleted}, t0.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), out.At)
	assert.False(t, task.CompletedAt.Before(*task.StartedAt))
}

func TestTransitionError_Message(t *testing.T) {
	err := error(&TransitionError{From: models.TaskStatusCompleted, To: models.TaskStatusCompleted})
	assert.Equal(t, "invalid status transition from completed to completed", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}
