// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"time"

	sq "github.com/Masterminds/squirrel"
)

const kvTable = "kv_store"

// upsertSuffix is understood by both SQLite (3.24+) and PostgreSQL.
const upsertSuffix = "ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at"

func buildGetItemQuery(b sq.StatementBuilderType, key string) (string, []any, error) {
	return b.Select("value").
		From(kvTable).
		Where(sq.Eq{"key": key}).
		ToSql()
}

func buildSetItemQuery(b sq.StatementBuilderType, key, value string, now time.Time) (string, []any, error) {
	return b.Insert(kvTable).
		Columns("key", "value", "updated_at").
		Values(key, value, now.UTC()).
		Suffix(upsertSuffix).
		ToSql()
}

// buildRemoveItemsQuery deletes every key in keys. squirrel renders a slice
// as an IN list.
func buildRemoveItemsQuery(b sq.StatementBuilderType, keys []string) (string, []any, error) {
	return b.Delete(kvTable).
		Where(sq.Eq{"key": keys}).
		ToSql()
}

func buildGetAllKeysQuery(b sq.StatementBuilderType) (string, []any, error) {
	return b.Select("key").
		From(kvTable).
		OrderBy("key").
		ToSql()
}
