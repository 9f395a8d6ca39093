package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rentfolio/portal-server-go/internal/model"
	redisclient "github.com/rentfolio/portal-server-go/internal/redis"
)

// RedisStore keeps one snapshot per visitor under keyPrefix, with the key
// TTL pinned to the session expiry so stale entries vanish on their own.
type RedisStore struct {
	client    *redisclient.Client
	keyPrefix string
	codec     codec
}

func NewRedisStore(client *redisclient.Client, keyPrefix, encryptionKey string) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		codec:     codec{encryptionKey: encryptionKey},
	}
}

func (s *RedisStore) key(visitorID string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, visitorID)
}

func (s *RedisStore) Load(ctx context.Context, visitorID string) (model.Snapshot, error) {
	payload, err := s.client.Get(ctx, s.key(visitorID)).Result()
	if errors.Is(err, redis.Nil) {
		return model.Snapshot{}, nil
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	return s.codec.decode(payload)
}

func (s *RedisStore) Save(ctx context.Context, visitorID string, snap model.Snapshot) error {
	payload, err := s.codec.encode(snap)
	if err != nil {
		return err
	}

	ttl := time.Duration(0)
	if snap.ExpiresAt != nil {
		ttl = time.Until(*snap.ExpiresAt)
		if ttl <= 0 {
			return s.Delete(ctx, visitorID)
		}
	}

	if err := s.client.Set(ctx, s.key(visitorID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, visitorID string) error {
	if err := s.client.Del(ctx, s.key(visitorID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op for redis: key TTLs already track session expiry.
func (s *RedisStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
