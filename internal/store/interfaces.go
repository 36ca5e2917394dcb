// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// KeyValueStore is the durable string key/value store the action queue and
// the ticket cache persist into. Values are opaque strings (JSON in practice).
//
// Implementations return errors wrapping [ErrStorage]; a write rejected for
// lack of space additionally wraps [ErrQuotaExceeded].
type KeyValueStore interface {
	// GetItem returns the value stored under key. The boolean is false when
	// the key does not exist; that is not an error.
	GetItem(ctx context.Context, key string) (string, bool, error)
	// SetItem creates or replaces the value stored under key.
	SetItem(ctx context.Context, key, value string) error
	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error
	// MultiRemove deletes every given key in one round trip where the
	// backend allows it.
	MultiRemove(ctx context.Context, keys ...string) error
	// GetAllKeys lists every key currently held by the store.
	GetAllKeys(ctx context.Context) ([]string, error)
	// Close releases the underlying connection.
	Close() error
}

// ErrorClassificator decides how a driver error should be treated.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}
