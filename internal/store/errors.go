// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import "errors"

// Sentinel errors returned by [KeyValueStore] implementations. Callers
// should use [errors.Is] to match against these values.
var (
	// ErrStorage wraps every failure of the underlying backend.
	ErrStorage = errors.New("storage error")

	// ErrQuotaExceeded is returned when a write is rejected because the
	// backend ran out of space (disk full, Redis maxmemory, memory quota).
	// The cache reacts to it by evicting older collections.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrKeyNotFound is returned by internal helpers that require a key to
	// exist. [KeyValueStore.GetItem] reports a missing key with false instead.
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnknownDriver is returned by [NewClientStorages] for a driver name
	// it cannot construct.
	ErrUnknownDriver = errors.New("unknown storage driver")

	// ErrStoreClosed is returned by the in-memory store after Close.
	ErrStoreClosed = errors.New("store is closed")
)

// Low-level database operation errors. These are wrapped together with
// [ErrStorage] when a SQL-level operation fails.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrExecutingStatement is returned when executing an INSERT or DELETE
	// fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning a single result row fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when iterating a multi-row result fails.
	ErrScanningRows = errors.New("failed to scan rows")
)
