// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package cache

import (
	"time"

	"github.com/MKhiriev/go-checkin/models"
)

// buildIndex maps every item's key to its position. chunkSize <= 0 means the
// collection is a single blob.
func buildIndex[T any](items []T, keyOf func(T) string, statusOf func(T) string, chunkSize int, ts time.Time) models.CacheIndex {
	idx := models.CacheIndex{
		Locations: make(map[string]models.IndexLocation, len(items)),
		ByStatus:  make(map[string][]string),
		Timestamp: ts,
	}

	for i, item := range items {
		key := keyOf(item)
		loc := models.IndexLocation{Chunk: -1, Position: i}
		if chunkSize > 0 {
			loc = models.IndexLocation{Chunk: i / chunkSize, Position: i % chunkSize}
		}
		idx.Locations[key] = loc

		if statusOf != nil {
			status := statusOf(item)
			idx.ByStatus[status] = append(idx.ByStatus[status], key)
		}
	}

	return idx
}

// moveStatus moves key between status partitions.
func moveStatus(idx *models.CacheIndex, key, from, to string) {
	if from == to {
		return
	}

	keys := idx.ByStatus[from]
	for i, k := range keys {
		if k == key {
			idx.ByStatus[from] = append(keys[:i:i], keys[i+1:]...)
			break
		}
	}
	if len(idx.ByStatus[from]) == 0 {
		delete(idx.ByStatus, from)
	}
	idx.ByStatus[to] = append(idx.ByStatus[to], key)
}
