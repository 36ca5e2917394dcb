// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package storetest provides a [store.KeyValueStore] wrapper that counts
// calls and injects failures, for tests of the queue, cache and sync
// service.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/MKhiriev/go-checkin/internal/store"
)

// FaultyStore wraps another [store.KeyValueStore]. Every call is counted;
// calls fail while the matching failure switch is set.
type FaultyStore struct {
	store.KeyValueStore

	mu        sync.Mutex
	writes    map[string]int
	reads     map[string]int
	failRead  error
	failWrite error
	// failWritePrefix limits failWrite to keys with this prefix when set.
	failWritePrefix string
	failWriteTimes  int
}

// Wrap returns a FaultyStore around inner.
func Wrap(inner store.KeyValueStore) *FaultyStore {
	return &FaultyStore{
		KeyValueStore: inner,
		writes:        make(map[string]int),
		reads:         make(map[string]int),
	}
}

// FailReads makes every GetItem and GetAllKeys call return err. A nil err
// restores normal behaviour.
func (f *FaultyStore) FailReads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRead = err
}

// FailWrites makes every SetItem, RemoveItem and MultiRemove call return
// err. A nil err restores normal behaviour.
func (f *FaultyStore) FailWrites(err error) {
	f.FailWritesN(err, "", -1)
}

// FailWritesN makes the next n SetItem calls for keys starting with prefix
// return err. n < 0 means until reset.
func (f *FaultyStore) FailWritesN(err error, prefix string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrite = err
	f.failWritePrefix = prefix
	f.failWriteTimes = n
}

// Writes returns how many times SetItem was called for key.
func (f *FaultyStore) Writes(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[key]
}

// WritesWithPrefix sums SetItem calls over keys starting with prefix.
func (f *FaultyStore) WritesWithPrefix(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for key, n := range f.writes {
		if strings.HasPrefix(key, prefix) {
			total += n
		}
	}
	return total
}

// Reads returns how many times GetItem was called for key.
func (f *FaultyStore) Reads(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[key]
}

// ResetCounters zeroes all call counters.
func (f *FaultyStore) ResetCounters() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = make(map[string]int)
	f.reads = make(map[string]int)
}

func (f *FaultyStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	f.reads[key]++
	err := f.failRead
	f.mu.Unlock()

	if err != nil {
		return "", false, fmt.Errorf("%w: %w", store.ErrStorage, err)
	}
	return f.KeyValueStore.GetItem(ctx, key)
}

func (f *FaultyStore) GetAllKeys(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	err := f.failRead
	f.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrStorage, err)
	}
	return f.KeyValueStore.GetAllKeys(ctx)
}

func (f *FaultyStore) SetItem(ctx context.Context, key, value string) error {
	f.mu.Lock()
	f.writes[key]++
	err := f.writeFailure(key)
	f.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrStorage, err)
	}
	return f.KeyValueStore.SetItem(ctx, key, value)
}

func (f *FaultyStore) RemoveItem(ctx context.Context, key string) error {
	return f.MultiRemove(ctx, key)
}

func (f *FaultyStore) MultiRemove(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	err := f.failWrite
	if f.failWritePrefix != "" || f.failWriteTimes >= 0 {
		// targeted failures only affect SetItem
		err = nil
	}
	f.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrStorage, err)
	}
	return f.KeyValueStore.MultiRemove(ctx, keys...)
}

// writeFailure must be called with mu held.
func (f *FaultyStore) writeFailure(key string) error {
	if f.failWrite == nil {
		return nil
	}
	if f.failWritePrefix != "" && !strings.HasPrefix(key, f.failWritePrefix) {
		return nil
	}
	if f.failWriteTimes == 0 {
		return nil
	}
	if f.failWriteTimes > 0 {
		f.failWriteTimes--
	}
	return f.failWrite
}

var _ store.KeyValueStore = (*FaultyStore)(nil)
