package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "pa-intake/errors"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "pa:session:"

// RedisStore keeps sessions in Redis for deployments that want them to
// survive a process restart or be shared behind a cache. Keys expire at the
// retention age, so the reaper's Sweep is mostly a no-op safety net here.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr, password string, db int, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

// NewRedisStoreFromClient wraps an existing client; used by tests.
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	val, err := r.client.Get(ctx, redisKey(id)).Result()
	if err == redis.Nil {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if s.Answers == nil {
		s.Answers = make(map[string]string)
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	if err := r.client.Set(ctx, redisKey(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

// Sweep scans for sessions whose last update predates the cutoff. TTLs
// already expire most of them; this catches sessions written with a longer
// TTL after a retention-age reconfiguration.
func (r *RedisStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := r.client.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		var s Session
		if err := json.Unmarshal([]byte(val), &s); err != nil {
			// Unreadable entry; drop it rather than keep it forever.
			r.client.Del(ctx, key)
			removed++
			continue
		}
		if s.UpdatedAt.Before(cutoff) {
			r.client.Del(ctx, key)
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan: %w", err)
	}
	return removed, nil
}
