// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/migrations"
)

func newTestSQLStore(t *testing.T, placeholder sq.PlaceholderFormat, classifier ErrorClassificator) (KeyValueStore, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	l := logger.Nop()
	db := &DB{
		DB:                 conn,
		placeholder:        placeholder,
		errorClassificator: classifier,
		logger:             l,
	}
	return NewSQLKeyValueStore(db, l), mock
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code}
}

// ── GetItem ───────────────────────────────────────────────────────────────────

func TestSQLKeyValueStore_GetItem_Found(t *testing.T) {
	kv, mock := newTestSQLStore(t, sq.Dollar, NewPostgresErrorClassifier())

	mock.ExpectQuery(`SELECT value FROM kv_store WHERE key = \$1`).
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("v1"))

	value, ok, err := kv.GetItem(context.Background(), "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLKeyValueStore_GetItem_Missing(t *testing.T) {
	kv, mock := newTestSQLStore(t, sq.Question, NewSQLiteErrorClassifier())

	mock.ExpectQuery(`SELECT value FROM kv_store WHERE key = \?`).
		WithArgs("k1").
		WillReturnError(sql.ErrNoRows)

	value, ok, err := kv.GetItem(context.Background(), "k1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestSQLKeyValueStore_GetItem_Error(t *testing.T) {
	kv, mock := newTestSQLStore(t, sq.Dollar, NewPostgresErrorClassifier())

	mock.ExpectQuery(`SELECT value FROM kv_store`).
		WillReturnError(errors.New("connection reset"))

	_, ok, err := kv.GetItem(context.Background(), "k1")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, ErrScanningRow)
	assert.NotErrorIs(t, err, ErrQuotaExceeded)
}

// ── SetItem ───────────────────────────────────────────────────────────────────

func TestSQLKeyValueStore_SetItem_Upserts(t *testing.T) {
	kv, mock := newTestSQLStore(t, sq.Dollar, NewPostgresErrorClassifier())

	mock.ExpectExec(`INSERT INTO kv_store \(key,value,updated_at\) VALUES \(\$1,\$2,\$3\) ON CONFLICT \(key\) DO UPDATE SET value = excluded.value`).
		WithArgs("k1", "v1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, kv.SetItem(context.Background(), "k1", "v1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLKeyValueStore_SetItem_Quota(t *testing.T) {
	tests := []struct {
		name        string
		placeholder sq.PlaceholderFormat
		classifier  ErrorClassificator
		driverErr   error
		wantQuota   bool
	}{
		{name: "postgres disk full", placeholder: sq.Dollar, classifier: NewPostgresErrorClassifier(), driverErr: pgError(pgerrcode.DiskFull), wantQuota: true},
		{name: "postgres unique violation", placeholder: sq.Dollar, classifier: NewPostgresErrorClassifier(), driverErr: pgError(pgerrcode.UniqueViolation)},
		{name: "sqlite full", placeholder: sq.Question, classifier: NewSQLiteErrorClassifier(), driverErr: sqlite3.Error{Code: sqlite3.ErrFull}, wantQuota: true},
		{name: "sqlite busy", placeholder: sq.Question, classifier: NewSQLiteErrorClassifier(), driverErr: sqlite3.Error{Code: sqlite3.ErrBusy}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, mock := newTestSQLStore(t, tt.placeholder, tt.classifier)
			mock.ExpectExec(`INSERT INTO kv_store`).WillReturnError(tt.driverErr)

			err := kv.SetItem(context.Background(), "k1", "v1")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStorage)
			assert.ErrorIs(t, err, ErrExecutingStatement)
			assert.Equal(t, tt.wantQuota, errors.Is(err, ErrQuotaExceeded))
		})
	}
}

// ── MultiRemove / RemoveItem ──────────────────────────────────────────────────

func TestSQLKeyValueStore_MultiRemove(t *testing.T) {
	kv, mock := newTestSQLStore(t, sq.Dollar, NewPostgresErrorClassifier())

	mock.ExpectExec(`DELETE FROM kv_store WHERE key IN \(\$1,\$2,\$3\)`).
		WithArgs("a", "b", "c").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, kv.MultiRemove(context.Background(), "a", "b", "c"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLKeyValueStore_MultiRemove_NoKeys(t *testing.T) {
	kv, mock := newTestSQLStore(t, sq.Dollar, NewPostgresErrorClassifier())

	require.NoError(t, kv.MultiRemove(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLKeyValueStore_RemoveItem(t *testing.T) {
	kv, mock := newTestSQLStore(t, sq.Question, NewSQLiteErrorClassifier())

	mock.ExpectExec(`DELETE FROM kv_store WHERE key IN \(\?\)`).
		WithArgs("a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, kv.RemoveItem(context.Background(), "a"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ── GetAllKeys ────────────────────────────────────────────────────────────────

func TestSQLKeyValueStore_GetAllKeys(t *testing.T) {
	kv, mock := newTestSQLStore(t, sq.Dollar, NewPostgresErrorClassifier())

	mock.ExpectQuery(`SELECT key FROM kv_store ORDER BY key`).
		WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("a").AddRow("b"))

	keys, err := kv.GetAllKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestSQLKeyValueStore_GetAllKeys_RowError(t *testing.T) {
	kv, mock := newTestSQLStore(t, sq.Dollar, NewPostgresErrorClassifier())

	mock.ExpectQuery(`SELECT key FROM kv_store`).
		WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("a").RowError(0, errors.New("boom")))

	_, err := kv.GetAllKeys(context.Background())
	assert.ErrorIs(t, err, ErrScanningRows)
}

// ── SQLite end-to-end ─────────────────────────────────────────────────────────

func TestSQLKeyValueStore_SQLiteRoundTrip(t *testing.T) {
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	db := &DB{
		DB:                 conn,
		dialect:            migrations.DialectSQLite,
		placeholder:        sq.Question,
		errorClassificator: NewSQLiteErrorClassifier(),
		logger:             logger.Nop(),
	}
	require.NoError(t, db.Migrate())

	kv := NewSQLKeyValueStore(db, logger.Nop())
	ctx := context.Background()

	require.NoError(t, kv.SetItem(ctx, "a", "1"))
	require.NoError(t, kv.SetItem(ctx, "b", "2"))
	require.NoError(t, kv.SetItem(ctx, "a", "3"))

	value, ok, err := kv.GetItem(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3", value)

	keys, err := kv.GetAllKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, kv.MultiRemove(ctx, "a", "missing"))
	_, ok, err = kv.GetItem(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}
