// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryKeyValueStore is an in-process [KeyValueStore]. It backs the
// "memory" driver and the package tests of the queue, cache and sync
// service. A positive quota caps the summed length of keys and values;
// writes beyond it fail with [ErrQuotaExceeded].
type MemoryKeyValueStore struct {
	mu     sync.RWMutex
	items  map[string]string
	quota  int64
	used   int64
	closed bool
}

// NewMemoryKeyValueStore returns an empty store. quotaBytes <= 0 disables
// the quota.
func NewMemoryKeyValueStore(quotaBytes int64) *MemoryKeyValueStore {
	return &MemoryKeyValueStore{
		items: make(map[string]string),
		quota: quotaBytes,
	}
}

func (m *MemoryKeyValueStore) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", false, fmt.Errorf("%w: %w", ErrStorage, ErrStoreClosed)
	}

	value, ok := m.items[key]
	return value, ok, nil
}

func (m *MemoryKeyValueStore) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("%w: %w", ErrStorage, ErrStoreClosed)
	}

	delta := int64(len(value))
	if old, ok := m.items[key]; ok {
		delta -= int64(len(old))
	} else {
		delta += int64(len(key))
	}

	if m.quota > 0 && m.used+delta > m.quota {
		return fmt.Errorf("%w: %w: %d of %d bytes used, %q needs %d more",
			ErrStorage, ErrQuotaExceeded, m.used, m.quota, key, delta)
	}

	m.items[key] = value
	m.used += delta
	return nil
}

func (m *MemoryKeyValueStore) RemoveItem(ctx context.Context, key string) error {
	return m.MultiRemove(ctx, key)
}

func (m *MemoryKeyValueStore) MultiRemove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("%w: %w", ErrStorage, ErrStoreClosed)
	}

	for _, key := range keys {
		if old, ok := m.items[key]; ok {
			m.used -= int64(len(key) + len(old))
			delete(m.items, key)
		}
	}
	return nil
}

// GetAllKeys returns the keys in lexical order.
func (m *MemoryKeyValueStore) GetAllKeys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("%w: %w", ErrStorage, ErrStoreClosed)
	}

	keys := make([]string, 0, len(m.items))
	for key := range m.items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryKeyValueStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Used reports the bytes currently counted against the quota.
func (m *MemoryKeyValueStore) Used() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}

var _ KeyValueStore = (*MemoryKeyValueStore)(nil)
