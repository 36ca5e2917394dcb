// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package cache

import "errors"

var (
	// ErrNotCached is returned by [Store.Patch], [Store.Update] and
	// [Store.Put] when the scope holds no collection.
	ErrNotCached = errors.New("collection is not cached")

	// ErrEntityNotFound is returned by [Store.Patch], [Store.Update] and
	// [Store.Put] when no cached entity has the requested key.
	ErrEntityNotFound = errors.New("entity is not in the cache")

	// ErrKeyChanged is returned when an update would change the natural
	// key of the entity.
	ErrKeyChanged = errors.New("update changes the entity key")

	// ErrCorruptCache is returned when stored records contradict the
	// metadata, for example a chunk listed in metadata is missing.
	ErrCorruptCache = errors.New("cached collection is inconsistent")
)
