// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MKhiriev/go-checkin/internal/config"
	"github.com/MKhiriev/go-checkin/internal/logger"
)

// redisKeyPrefix namespaces every key this client writes, so a Redis
// instance can be shared with other tenants.
const redisKeyPrefix = "go-checkin:"

const redisScanCount = 200

// redisKeyValueStore implements [KeyValueStore] over plain Redis strings.
type redisKeyValueStore struct {
	client redis.UniversalClient
	prefix string
	logger *logger.Logger
}

// NewRedisKeyValueStore connects to the Redis server described by cfg and
// verifies it with PING.
func NewRedisKeyValueStore(ctx context.Context, cfg config.Redis, log *logger.Logger) (KeyValueStore, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis: missing address")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		log.Err(err).Str("func", "NewRedisKeyValueStore").Str("address", cfg.Address).Msg("error connecting redis (ping)")
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping: %w", ErrStorage, err)
	}
	log.Info().Str("func", "NewRedisKeyValueStore").Msg("connected to redis successfully")

	return newRedisKeyValueStore(client, redisKeyPrefix, log), nil
}

func newRedisKeyValueStore(client redis.UniversalClient, prefix string, log *logger.Logger) *redisKeyValueStore {
	return &redisKeyValueStore{
		client: client,
		prefix: prefix,
		logger: log,
	}
}

func (r *redisKeyValueStore) key(k string) string {
	return r.prefix + k
}

func (r *redisKeyValueStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		r.logger.Err(err).Str("func", "redisKeyValueStore.GetItem").Str("key", key).Msg("failed to read value")
		return "", false, wrapRedisError(err)
	}
	return value, true, nil
}

func (r *redisKeyValueStore) SetItem(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		r.logger.Err(err).
			Str("func", "redisKeyValueStore.SetItem").
			Str("key", key).
			Int("value_len", len(value)).
			Msg("failed to write value")
		return wrapRedisError(err)
	}
	return nil
}

func (r *redisKeyValueStore) RemoveItem(ctx context.Context, key string) error {
	return r.MultiRemove(ctx, key)
}

func (r *redisKeyValueStore) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.key(k)
	}

	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		r.logger.Err(err).Str("func", "redisKeyValueStore.MultiRemove").Int("keys", len(keys)).Msg("failed to delete keys")
		return wrapRedisError(err)
	}
	return nil
}

// GetAllKeys walks the keyspace with SCAN, never KEYS, and strips the prefix.
func (r *redisKeyValueStore) GetAllKeys(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, 16)

	iter := r.client.Scan(ctx, 0, r.prefix+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		r.logger.Err(err).Str("func", "redisKeyValueStore.GetAllKeys").Msg("failed to scan keys")
		return nil, wrapRedisError(err)
	}

	return keys, nil
}

func (r *redisKeyValueStore) Close() error {
	return r.client.Close()
}

// wrapRedisError maps "OOM command not allowed" replies (maxmemory reached
// with a noeviction policy) to [ErrQuotaExceeded].
func wrapRedisError(err error) error {
	if isRedisOOM(err) {
		return fmt.Errorf("%w: %w: %w", ErrStorage, ErrQuotaExceeded, err)
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func isRedisOOM(err error) bool {
	var redisErr redis.Error
	if !errors.As(err, &redisErr) {
		return false
	}
	return strings.HasPrefix(redisErr.Error(), "OOM ")
}
