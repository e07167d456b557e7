package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions as JSON values that expire on their own.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "bot:session:"}
}

func (s *RedisStore) key(actorID int64) string {
	return fmt.Sprintf("%s%d", s.prefix, actorID)
}

func (s *RedisStore) Get(ctx context.Context, actorID int64) (*Wait, error) {
	data, err := s.client.Get(ctx, s.key(actorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var wait Wait
	if err := json.Unmarshal(data, &wait); err != nil {
		return nil, fmt.Errorf("corrupt session for actor %d: %w", actorID, err)
	}
	return &wait, nil
}

func (s *RedisStore) Put(ctx context.Context, wait Wait, ttl time.Duration) error {
	data, err := json.Marshal(wait)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(wait.ActorID), data, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, actorID int64) error {
	return s.client.Del(ctx, s.key(actorID)).Err()
}
