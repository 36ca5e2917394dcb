// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-checkin/internal/config"
	"github.com/MKhiriev/go-checkin/internal/logger"
)

// ClientStorages groups the client-side storage into a single value that can
// be passed to the queue and the cache.
type ClientStorages struct {
	// KeyValueStore is the durable store selected by the configured driver.
	KeyValueStore KeyValueStore
}

// NewClientStorages initialises the client storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens the backend named by cfg.Driver (sqlite, postgres, redis or memory).
//  2. For SQL backends, runs pending schema migrations via [DB.Migrate].
//  3. Returns a [ClientStorages] value wired to the resulting [KeyValueStore].
//
// Returns an error if the backend cannot be reached, migration fails, or the
// driver is unknown.
func NewClientStorages(ctx context.Context, cfg config.Storage, log *logger.Logger) (*ClientStorages, error) {
	log.Info().Str("driver", cfg.Driver).Msg("creating new storages...")

	var (
		kv  KeyValueStore
		err error
	)

	switch cfg.Driver {
	case config.DriverSQLite, "":
		kv, err = newSQLStore(ctx, cfg, log, NewConnectSQLite)
	case config.DriverPostgres:
		kv, err = newSQLStore(ctx, cfg, log, NewConnectPostgres)
	case config.DriverRedis:
		kv, err = NewRedisKeyValueStore(ctx, cfg.Redis, log)
	case config.DriverMemory:
		kv = NewMemoryKeyValueStore(cfg.QuotaBytes)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	return &ClientStorages{
		KeyValueStore: kv,
	}, nil
}

type sqlConnector func(ctx context.Context, cfg config.DB, log *logger.Logger) (*DB, error)

func newSQLStore(ctx context.Context, cfg config.Storage, log *logger.Logger, connect sqlConnector) (KeyValueStore, error) {
	db, err := connect(ctx, cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("%s connection error: %w", cfg.Driver, err)
	}

	if err = db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return NewSQLKeyValueStore(db, log), nil
}

// Close releases the underlying store.
func (s *ClientStorages) Close() error {
	if s == nil || s.KeyValueStore == nil {
		return nil
	}
	return s.KeyValueStore.Close()
}
