// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package queue implements the durable, deduplicating, bounded FIFO of
// mutations made while the device could not reach the server.
//
// The whole queue is stored as one JSON array under [StorageKey]. Every
// mutating call is a read-modify-write cycle of that key, serialized by a
// mutex owned by the [Queue].
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/store"
	"github.com/MKhiriev/go-checkin/internal/utils"
	"github.com/MKhiriev/go-checkin/models"
)

// StorageKey is the single durable key holding the queue.
const StorageKey = "@checkin:action_queue"

// Defaults used when a [Config] field is zero.
const (
	DefaultMaxSize     = 1000
	DefaultDedupWindow = 5 * time.Minute
	DefaultMaxAge      = 7 * 24 * time.Hour
	DefaultMaxRetries  = 3
)

// Config holds the queue limits.
type Config struct {
	MaxSize     int
	DedupWindow time.Duration
	MaxAge      time.Duration
	// MaxRetries is the retry bound shared with the sync service; capacity
	// cleanup only evicts items that are [models.QueueItem.Exhausted].
	MaxRetries int
}

func (c Config) withDefaults() Config {
	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = DefaultDedupWindow
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

// Queue is the action queue.
type Queue struct {
	kv     store.KeyValueStore
	cfg    Config
	ids    *utils.IDGenerator
	now    func() time.Time
	logger *logger.Logger

	mu sync.Mutex
}

// Option configures a [Queue].
type Option func(*Queue)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// New creates a queue persisted in kv.
func New(kv store.KeyValueStore, cfg Config, log *logger.Logger, opts ...Option) *Queue {
	q := &Queue{
		kv:     kv,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.ids = utils.NewIDGeneratorWithClock(q.now)
	return q
}

// Enqueue appends a mutation and returns its id. payload is any of the
// models.*Payload types (or their JSON encoding).
//
// When a live item with the same type and natural key exists within the
// dedup window, its id is returned and nothing is added. When the queue is
// full a cleanup pass runs first; if it frees nothing, [ErrQueueFull] is
// returned. A failed write returns an error wrapping [store.ErrStorage]:
// the mutation was not recorded.
func (q *Queue) Enqueue(ctx context.Context, actionType models.ActionType, payload any) (string, error) {
	if !actionType.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownActionType, actionType)
	}

	raw, ref, err := encodePayload(payload)
	if err != nil {
		return "", err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.read(ctx)
	if err != nil {
		// never overwrite a queue we could not read
		return "", err
	}

	now := q.now()
	key := dedupRules[actionType].naturalKey(ref)

	if i := findDuplicate(items, actionType, key, q.cfg.DedupWindow, now); i >= 0 {
		existing := items[i]
		if dedupRules[actionType].refreshPayload && string(existing.Payload) != string(raw) {
			items[i].Payload = raw
			if err = q.write(ctx, items); err != nil {
				return "", err
			}
		}

		q.logger.Debug().
			Str("func", "Queue.Enqueue").
			Str("type", actionType.String()).
			Str("entity", key).
			Str("id", existing.ID).
			Msg("duplicate action collapsed")
		return existing.ID, nil
	}

	if len(items) >= q.cfg.MaxSize {
		var evicted int
		items, evicted = q.cleanup(items, now)
		if len(items) >= q.cfg.MaxSize {
			q.logger.Warn().
				Str("func", "Queue.Enqueue").
				Int("size", len(items)).
				Int("max_size", q.cfg.MaxSize).
				Msg("action queue is full")
			return "", fmt.Errorf("%w: %d items", ErrQueueFull, len(items))
		}
		q.logger.Info().Str("func", "Queue.Enqueue").Int("evicted", evicted).Msg("capacity cleanup freed space")
	}

	item := models.QueueItem{
		ID:        q.ids.Generate(actionType.String()),
		Type:      actionType,
		Payload:   raw,
		CreatedAt: now,
	}
	items = append(items, item)

	if err = q.write(ctx, items); err != nil {
		return "", err
	}

	return item.ID, nil
}

// DequeueAll returns a snapshot of the queue in insertion order. The queue
// itself is not modified. A storage failure yields an empty snapshot.
func (q *Queue) DequeueAll(ctx context.Context) []models.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.read(ctx)
	if err != nil {
		return nil
	}
	return items
}

// Remove deletes the items with the given ids. Absent ids are ignored.
func (q *Queue) Remove(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.read(ctx)
	if err != nil {
		return
	}

	kept := slices.DeleteFunc(slices.Clone(items), func(item models.QueueItem) bool {
		return slices.Contains(ids, item.ID)
	})
	if len(kept) == len(items) {
		return
	}

	_ = q.write(ctx, kept)
}

// IncrementRetry bumps the retry count of one item and returns the new
// value. It returns 0 when the item is absent or the write failed.
func (q *Queue) IncrementRetry(ctx context.Context, id string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.read(ctx)
	if err != nil {
		return 0
	}

	i := slices.IndexFunc(items, func(item models.QueueItem) bool { return item.ID == id })
	if i < 0 {
		return 0
	}
	items[i].RetryCount++

	if err = q.write(ctx, items); err != nil {
		return 0
	}
	return items[i].RetryCount
}

// Size returns the number of queued items, or 0 when the store fails.
func (q *Queue) Size(ctx context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.read(ctx)
	if err != nil {
		return 0
	}
	return len(items)
}

// Cleanup evicts items older than MaxAge that exhausted their retries and
// returns how many were removed.
func (q *Queue) Cleanup(ctx context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.read(ctx)
	if err != nil {
		return 0
	}

	kept, evicted := q.cleanup(items, q.now())
	if evicted == 0 {
		return 0
	}
	if err = q.write(ctx, kept); err != nil {
		return 0
	}
	return evicted
}

// Clear drops every queued item.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.kv.RemoveItem(ctx, StorageKey); err != nil {
		q.logger.Err(err).Str("func", "Queue.Clear").Msg("failed to clear action queue")
		return err
	}
	return nil
}

// cleanup returns items without the evictable ones. Recent items and items
// still eligible for retry are always kept.
func (q *Queue) cleanup(items []models.QueueItem, now time.Time) ([]models.QueueItem, int) {
	kept := make([]models.QueueItem, 0, len(items))
	for _, item := range items {
		expired := now.Sub(item.CreatedAt) > q.cfg.MaxAge
		if expired && item.Exhausted(q.cfg.MaxRetries) {
			continue
		}
		kept = append(kept, item)
	}
	return kept, len(items) - len(kept)
}

// read loads the queue. A missing key is an empty queue; undecodable data
// is logged and treated as empty so the next write replaces it.
func (q *Queue) read(ctx context.Context) ([]models.QueueItem, error) {
	raw, ok, err := q.kv.GetItem(ctx, StorageKey)
	if err != nil {
		q.logger.Err(err).Str("func", "Queue.read").Msg("failed to read action queue")
		return nil, err
	}
	if !ok || raw == "" {
		return []models.QueueItem{}, nil
	}

	var items []models.QueueItem
	if err = json.Unmarshal([]byte(raw), &items); err != nil {
		q.logger.Err(err).Str("func", "Queue.read").Int("len", len(raw)).Msg("corrupt action queue, starting empty")
		return []models.QueueItem{}, nil
	}
	return items, nil
}

func (q *Queue) write(ctx context.Context, items []models.QueueItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		q.logger.Err(err).Str("func", "Queue.write").Msg("failed to encode action queue")
		return fmt.Errorf("%w: encode queue: %w", store.ErrStorage, err)
	}

	if err = q.kv.SetItem(ctx, StorageKey, string(raw)); err != nil {
		q.logger.Err(err).Str("func", "Queue.write").Int("size", len(items)).Msg("failed to persist action queue")
		return err
	}
	return nil
}

// encodePayload normalizes payload to JSON and extracts its ticket
// reference.
func encodePayload(payload any) (json.RawMessage, models.EntityRef, error) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, models.EntityRef{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		raw = b
	}

	ref, err := models.QueueItem{Payload: raw}.Entity()
	if err != nil {
		return nil, models.EntityRef{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if ref.Code == "" || ref.EventUUID == "" {
		return nil, models.EntityRef{}, fmt.Errorf("%w: code and event_uuid are required", ErrInvalidPayload)
	}

	return raw, ref, nil
}
