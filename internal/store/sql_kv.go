// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-checkin/internal/logger"
)

// sqlKeyValueStore is the SQL-backed implementation of [KeyValueStore]. It
// keeps every entry as one row of the kv_store table and works unchanged on
// SQLite and PostgreSQL.
type sqlKeyValueStore struct {
	*DB
	logger *logger.Logger
	now    func() time.Time
}

// NewSQLKeyValueStore constructs a [KeyValueStore] on top of an opened and
// migrated [DB].
func NewSQLKeyValueStore(db *DB, log *logger.Logger) KeyValueStore {
	return &sqlKeyValueStore{
		DB:     db,
		logger: log,
		now:    time.Now,
	}
}

// GetItem reads a single value. sql.ErrNoRows is reported as a miss.
func (s *sqlKeyValueStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	query, args, err := buildGetItemQuery(s.builder(), key)
	if err != nil {
		s.logger.Err(err).Str("func", "sqlKeyValueStore.GetItem").Str("key", key).Msg("failed to create query")
		return "", false, s.wrap(ErrBuildingSQLQuery, err)
	}

	var value string
	err = s.DB.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		s.logger.Err(err).Str("func", "sqlKeyValueStore.GetItem").Str("key", key).Msg("failed to read value")
		return "", false, s.wrap(ErrScanningRow, err)
	}

	return value, true, nil
}

// SetItem upserts key with value.
func (s *sqlKeyValueStore) SetItem(ctx context.Context, key, value string) error {
	query, args, err := buildSetItemQuery(s.builder(), key, value, s.now())
	if err != nil {
		s.logger.Err(err).Str("func", "sqlKeyValueStore.SetItem").Str("key", key).Msg("failed to create query")
		return s.wrap(ErrBuildingSQLQuery, err)
	}

	if _, err = s.DB.ExecContext(ctx, query, args...); err != nil {
		s.logger.Err(err).
			Str("func", "sqlKeyValueStore.SetItem").
			Str("key", key).
			Int("value_len", len(value)).
			Msg("failed to write value")
		return s.wrap(ErrExecutingStatement, err)
	}

	return nil
}

func (s *sqlKeyValueStore) RemoveItem(ctx context.Context, key string) error {
	return s.MultiRemove(ctx, key)
}

// MultiRemove deletes all keys with a single DELETE ... IN statement.
func (s *sqlKeyValueStore) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	query, args, err := buildRemoveItemsQuery(s.builder(), keys)
	if err != nil {
		s.logger.Err(err).Str("func", "sqlKeyValueStore.MultiRemove").Int("keys", len(keys)).Msg("failed to create query")
		return s.wrap(ErrBuildingSQLQuery, err)
	}

	if _, err = s.DB.ExecContext(ctx, query, args...); err != nil {
		s.logger.Err(err).Str("func", "sqlKeyValueStore.MultiRemove").Int("keys", len(keys)).Msg("failed to delete keys")
		return s.wrap(ErrExecutingStatement, err)
	}

	return nil
}

func (s *sqlKeyValueStore) GetAllKeys(ctx context.Context) ([]string, error) {
	query, args, err := buildGetAllKeysQuery(s.builder())
	if err != nil {
		s.logger.Err(err).Str("func", "sqlKeyValueStore.GetAllKeys").Msg("failed to create query")
		return nil, s.wrap(ErrBuildingSQLQuery, err)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Err(err).Str("func", "sqlKeyValueStore.GetAllKeys").Msg("failed to execute query")
		return nil, s.wrap(ErrExecutingQuery, err)
	}
	defer rows.Close()

	keys := make([]string, 0, 16)
	for rows.Next() {
		var key string
		if scanErr := rows.Scan(&key); scanErr != nil {
			s.logger.Err(scanErr).Str("func", "sqlKeyValueStore.GetAllKeys").Msg("failed to scan key row")
			return nil, s.wrap(ErrScanningRow, scanErr)
		}
		keys = append(keys, key)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		s.logger.Err(rowsErr).Str("func", "sqlKeyValueStore.GetAllKeys").Msg("error occurred during rows iteration")
		return nil, s.wrap(ErrScanningRows, rowsErr)
	}

	return keys, nil
}

func (s *sqlKeyValueStore) Close() error {
	return s.DB.Close()
}

// wrap joins the operation sentinel, the classified storage sentinel and
// the driver error so callers can match on any of them.
func (s *sqlKeyValueStore) wrap(op, err error) error {
	kind := ErrStorage
	if s.errorClassificator != nil && s.errorClassificator.Classify(err) == QuotaExceeded {
		kind = fmt.Errorf("%w: %w", ErrStorage, ErrQuotaExceeded)
	}
	return fmt.Errorf("%w: %w: %w", kind, op, err)
}
