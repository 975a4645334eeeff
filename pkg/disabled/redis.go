package disabled

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisKey is the set holding disabled ids
const DefaultRedisKey = "pluginhost:disabled"

// RedisStore keeps disabled ids in a Redis set
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a store using the set at key
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Load implements Store
func (s *RedisStore) Load(ctx context.Context) (map[string]bool, error) {
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	ids := make(map[string]bool, len(members))
	for _, m := range members {
		ids[m] = true
	}
	return ids, nil
}

// Append implements Store
func (s *RedisStore) Append(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	members := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		members = append(members, id)
	}
	if err := s.client.SAdd(ctx, s.key, members...).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// Close implements Store
func (s *RedisStore) Close() error {
	return s.client.Close()
}
