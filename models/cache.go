// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// CacheMetadata describes a cached collection. It is written for every
// collection, chunked or not, so that counts and freshness can be answered
// without reading any item data.
type CacheMetadata struct {
	TotalCount int       `json:"total_count"`
	ChunkCount int       `json:"chunk_count"`
	ChunkSize  int       `json:"chunk_size"`
	ChunkKeys  []string  `json:"chunk_keys,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	IsChunked  bool      `json:"is_chunked"`
}

// CacheBlob holds a small collection stored under a single key.
type CacheBlob[T any] struct {
	Items     []T       `json:"items"`
	Timestamp time.Time `json:"timestamp"`
}

// CacheChunk holds one fixed-size segment of a chunked collection.
// ChunkIndex equals the chunk's position in CacheMetadata.ChunkKeys.
type CacheChunk[T any] struct {
	Items      []T       `json:"items"`
	ChunkIndex int       `json:"chunk_index"`
	Timestamp  time.Time `json:"timestamp"`
}

// IndexLocation points at an entity inside a cached collection.
// Chunk is -1 for non-chunked collections.
type IndexLocation struct {
	Chunk    int `json:"c"`
	Position int `json:"p"`
}

// CacheIndex is the per-collection lookup index. It is best-effort and may be
// rebuilt from the chunks at any time.
type CacheIndex struct {
	Locations map[string]IndexLocation `json:"locations"`
	// ByStatus partitions natural keys by a coarse status value.
	ByStatus  map[string][]string `json:"by_status"`
	Timestamp time.Time           `json:"timestamp"`
}
