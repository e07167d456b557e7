package bot

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)

	at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, Wait{ActorID: 7, ChatID: 70, Kind: WaitPhoto, TaskID: 1, CreatedAt: at}, time.Minute))
	require.NoError(t, store.Put(ctx, Wait{ActorID: 7, ChatID: 70, Kind: WaitComment, TaskID: 2, CreatedAt: at}, time.Minute))
	assert.True(t, mr.Exists("bot:session:7"))

	got, err = store.Get(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, WaitComment, got.Kind)
	assert.Equal(t, uint64(2), got.TaskID)
	assert.Equal(t, int64(70), got.ChatID)
	assert.True(t, at.Equal(got.CreatedAt))

	require.NoError(t, store.Delete(ctx, 7))
	got, err = store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_KeyExpires(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Put(ctx, Wait{ActorID: 3, Kind: WaitLocationStart, TaskID: 5, CreatedAt: time.Now()}, 30*time.Minute))
	assert.Equal(t, 30*time.Minute, mr.TTL("bot:session:3"))

	mr.FastForward(29 * time.Minute)
	got, err := store.Get(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, got)

	mr.FastForward(2 * time.Minute)
	got, err = store.Get(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_WithSessions(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)
	s := NewSessions(store, time.Minute)

	require.NoError(t, s.BeginWait(ctx, 9, 90, WaitLocationStart, 4))

	// A text does not answer a location prompt.
	got, err := s.Resolve(ctx, 9, InputText)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Resolve(ctx, 9, InputLocation)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(4), got.TaskID)

	pending, err := s.Pending(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set("bot:session:1", "not json"))

	_, err := store.Get(context.Background(), 1)
	assert.Error(t, err)
}
