// Package redis provides a Redis-backed settings store for checkpoints.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"feedwatch/internal/repository"
)

var _ repository.SettingRepository = (*SettingRepo)(nil)

// DefaultKeyPrefix namespaces every settings key.
const DefaultKeyPrefix = "feedwatch:setting:"

// SettingRepo stores settings as plain string keys without expiry.
type SettingRepo struct {
	client *redis.Client
	prefix string
}

// NewSettingRepo creates a settings store on client. An empty prefix uses DefaultKeyPrefix.
func NewSettingRepo(client *redis.Client, prefix string) *SettingRepo {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &SettingRepo{client: client, prefix: prefix}
}

// NewClientFromURL parses a redis:// URL into a client.
func NewClientFromURL(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (r *SettingRepo) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SettingRepo) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (r *SettingRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
