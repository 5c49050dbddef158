package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lllypuk/ladder/internal/application/pagination"
)

const defaultKeyPrefix = "ladder:interaction:"

// RedisStore keeps entries in Redis with a native key TTL.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// RedisStoreConfig contains configuration for RedisStore.
type RedisStoreConfig struct {
	Client    *redis.Client
	KeyPrefix string
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(cfg RedisStoreConfig) *RedisStore {
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}

	return &RedisStore{
		client:    cfg.Client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

func (s *RedisStore) key(responseID string) string {
	return s.keyPrefix + responseID
}

// Put stores e until e.ExpiresAt.
func (s *RedisStore) Put(ctx context.Context, e pagination.Entry) error {
	ttl := e.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("%w: entry %s is already expired", pagination.ErrInvalidEntry, e.ResponseID)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode interaction: %w", err)
	}

	if err = s.client.Set(ctx, s.key(e.ResponseID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store interaction: %w", err)
	}
	return nil
}

// Get loads the entry for responseID.
func (s *RedisStore) Get(ctx context.Context, responseID string) (pagination.Entry, error) {
	data, err := s.client.Get(ctx, s.key(responseID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return pagination.Entry{}, pagination.ErrExpired
		}
		return pagination.Entry{}, fmt.Errorf("failed to get interaction: %w", err)
	}

	var e pagination.Entry
	if err = json.Unmarshal(data, &e); err != nil {
		return pagination.Entry{}, fmt.Errorf("failed to decode interaction: %w", err)
	}
	return e, nil
}

// SetPage rewrites the entry with a new page, keeping its remaining TTL. The
// write only happens while the key still exists.
func (s *RedisStore) SetPage(ctx context.Context, responseID string, page int) error {
	e, err := s.Get(ctx, responseID)
	if err != nil {
		return err
	}
	e.Page = page

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode interaction: %w", err)
	}

	err = s.client.SetArgs(ctx, s.key(responseID), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return pagination.ErrExpired
		}
		return fmt.Errorf("failed to update interaction page: %w", err)
	}
	return nil
}
