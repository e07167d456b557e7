package lifecycle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/field-service-api/internal/models"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	assert.False(t, p.RequireLocation(ChannelWeb, models.TaskStatusAssigned, models.TaskStatusEnRoute))
	assert.True(t, p.RequireLocation(ChannelWeb, models.TaskStatusEnRoute, models.TaskStatusInProgress))
	assert.False(t, p.RequireLocation(ChannelWeb, models.TaskStatusInProgress, models.TaskStatusCompleted))

	assert.True(t, p.RequireLocation(ChannelBot, models.TaskStatusAssigned, models.TaskStatusEnRoute))
	assert.True(t, p.RequireLocation(ChannelBot, models.TaskStatusInProgress, models.TaskStatusCompleted))
	assert.False(t, p.RequireLocation(ChannelBot, models.TaskStatusInProgress, models.TaskStatusPaused))
}

func TestParsePolicy_Overrides(t *testing.T) {
	data := []byte(`
web:
  - from: in_progress
    to: completed
    require_location: true
bot:
  - from: assigned
    to: en_route
    require_location: false
`)
	p, err := ParsePolicy(data)
	require.NoError(t, err)

	assert.True(t, p.RequireLocation(ChannelWeb, models.TaskStatusInProgress, models.TaskStatusCompleted))
	assert.False(t, p.RequireLocation(ChannelBot, models.TaskStatusAssigned, models.TaskStatusEnRoute))
	// untouched defaults survive
	assert.True(t, p.RequireLocation(ChannelBot, models.TaskStatusEnRoute, models.TaskStatusInProgress))
}

func TestParsePolicy_RejectsUnknownEdgesAndChannels(t *testing.T) {
	_, err := ParsePolicy([]byte("web:\n  - from: pending\n    to: completed\n    require_location: true\n"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = ParsePolicy([]byte("sms: []\n"))
	assert.Error(t, err)
}

func TestLoadPolicy(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.True(t, p.RequireLocation(ChannelBot, models.TaskStatusInProgress, models.TaskStatusCompleted))

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bot:\n  - from: in_progress\n    to: completed\n    require_location: false\n"), 0o600))

	p, err = LoadPolicy(path)
	require.NoError(t, err)
	assert.False(t, p.RequireLocation(ChannelBot, models.TaskStatusInProgress, models.TaskStatusCompleted))

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
