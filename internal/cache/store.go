// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package cache persists server-fetched collections in the key/value store.
//
// Collections larger than the chunk size are split into fixed-size chunks
// addressed by position, so a page of a large ticket list or a patch of one
// ticket touches a single chunk. Each collection also carries a metadata
// record (counts and timestamp) and a best-effort index from natural key to
// chunk position, partitioned by status.
//
// The cache is never the source of truth: storage failures are logged and
// reported as "not cached".
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"dario.cat/mergo"

	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/store"
	"github.com/MKhiriev/go-checkin/models"
)

// Defaults used when a [Config] field is zero.
const (
	DefaultChunkSize = 1000
	DefaultDuration  = 24 * time.Hour
)

// Config controls chunking, freshness and value encoding.
type Config struct {
	// Collection names the cached resource kind, e.g. "tickets".
	Collection string
	ChunkSize  int
	// Duration is the freshness TTL.
	Duration time.Duration
	// Compress stores blobs and chunks snappy-compressed.
	Compress bool
}

// LoadOptions selects a window of a collection. Filter is applied after the
// window has been loaded.
type LoadOptions[T any] struct {
	Limit  int
	Offset int
	Filter func(T) bool
}

// Store caches collections of T. The key function returns an entity's
// natural key, the status function its index partition.
type Store[T any] struct {
	kv       store.KeyValueStore
	cfg      Config
	codec    Codec
	keyOf    func(T) string
	statusOf func(T) string
	now      func() time.Time
	logger   *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a [Store].
type Option[T any] func(*Store[T])

// WithClock replaces the wall clock, for tests.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(s *Store[T]) {
		s.now = now
	}
}

// New creates a cache of T in kv.
func New[T any](kv store.KeyValueStore, cfg Config, keyOf, statusOf func(T) string, log *logger.Logger, opts ...Option[T]) *Store[T] {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}

	var codec Codec = PlainCodec{}
	if cfg.Compress {
		codec = SnappyCodec{}
	}

	s := &Store[T]{
		kv:       kv,
		cfg:      cfg,
		codec:    codec,
		keyOf:    keyOf,
		statusOf: statusOf,
		now:      time.Now,
		logger:   log,
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lock returns the mutex serializing read-modify-write cycles of scope.
func (s *Store[T]) lock(scope string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[scope]
	if !ok {
		l = &sync.Mutex{}
		s.locks[scope] = l
	}
	return l
}

func (s *Store[T]) keys(scope string) scopeKeys {
	return newScopeKeys(s.cfg.Collection, scope)
}

// ── Save ─────────────────────────────────────────────────────────────────────

// Save replaces the collection of scope with items and rebuilds its index.
// When the store reports [store.ErrQuotaExceeded], other collections are
// evicted and the save is retried once. If the retry fails too, the scope is
// cleared rather than left half written.
func (s *Store[T]) Save(ctx context.Context, scope string, items []T) error {
	l := s.lock(scope)
	l.Lock()
	defer l.Unlock()

	err := s.save(ctx, scope, items)
	if errors.Is(err, store.ErrQuotaExceeded) {
		evicted := s.evict(ctx, scope)
		s.logger.Warn().
			Str("func", "Store.Save").
			Str("scope", scope).
			Int("evicted_scopes", evicted).
			Msg("storage quota exceeded, retrying after eviction")
		err = s.save(ctx, scope, items)
	}

	if err != nil {
		s.logger.Err(err).Str("func", "Store.Save").Str("scope", scope).Int("items", len(items)).Msg("failed to save collection")
		s.clear(ctx, scope)
		return err
	}

	return nil
}

func (s *Store[T]) save(ctx context.Context, scope string, items []T) error {
	k := s.keys(scope)
	ts := s.now().UTC()

	previous, hadPrevious := s.readMeta(ctx, scope)

	meta := models.CacheMetadata{
		TotalCount: len(items),
		ChunkSize:  s.cfg.ChunkSize,
		Timestamp:  ts,
	}
	indexChunkSize := 0

	if len(items) > s.cfg.ChunkSize {
		chunks := splitChunks(items, s.cfg.ChunkSize)
		meta.IsChunked = true
		meta.ChunkCount = len(chunks)
		meta.ChunkKeys = make([]string, len(chunks))

		for i, items := range chunks {
			meta.ChunkKeys[i] = k.chunk(i)
			chunk := models.CacheChunk[T]{Items: items, ChunkIndex: i, Timestamp: ts}
			if err := s.setRecord(ctx, k.chunk(i), chunk, true); err != nil {
				return fmt.Errorf("write chunk %d: %w", i, err)
			}
		}
		indexChunkSize = s.cfg.ChunkSize
	} else {
		blob := models.CacheBlob[T]{Items: items, Timestamp: ts}
		if err := s.setRecord(ctx, k.blob(), blob, true); err != nil {
			return fmt.Errorf("write blob: %w", err)
		}
	}

	if err := s.setRecord(ctx, k.meta(), meta, false); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	if hadPrevious {
		s.removeStale(ctx, k, previous, meta)
	}

	idx := buildIndex(items, s.keyOf, s.statusOf, indexChunkSize, ts)
	if err := s.setRecord(ctx, k.index(), idx, false); err != nil {
		// the index is rebuilt on demand
		s.logger.Warn().Err(err).Str("func", "Store.save").Str("scope", scope).Msg("failed to write index")
	}

	return nil
}

// removeStale deletes records of the previous save that the new one does
// not overwrite.
func (s *Store[T]) removeStale(ctx context.Context, k scopeKeys, previous, current models.CacheMetadata) {
	var stale []string

	switch {
	case previous.IsChunked && current.IsChunked:
		if len(previous.ChunkKeys) > len(current.ChunkKeys) {
			stale = append(stale, previous.ChunkKeys[len(current.ChunkKeys):]...)
		}
	case previous.IsChunked:
		stale = append(stale, previous.ChunkKeys...)
	case current.IsChunked:
		stale = append(stale, k.blob())
	}

	if len(stale) == 0 {
		return
	}
	if err := s.kv.MultiRemove(ctx, stale...); err != nil {
		s.logger.Warn().Err(err).Str("func", "Store.removeStale").Int("keys", len(stale)).Msg("failed to remove stale records")
	}
}

// ── Load ─────────────────────────────────────────────────────────────────────

// Load returns the window of the collection selected by opts. For a chunked
// collection only the chunks covering the window are read. The boolean is
// false when the scope is not cached or cannot be read.
func (s *Store[T]) Load(ctx context.Context, scope string, opts LoadOptions[T]) ([]T, bool) {
	meta, ok := s.readMeta(ctx, scope)
	if !ok {
		return nil, false
	}

	items, err := s.loadWindow(ctx, scope, meta, opts.Offset, opts.Limit)
	if err != nil {
		s.logger.Err(err).Str("func", "Store.Load").Str("scope", scope).Msg("failed to load collection")
		return nil, false
	}

	if opts.Filter == nil {
		return items, true
	}

	filtered := make([]T, 0, len(items))
	for _, item := range items {
		if opts.Filter(item) {
			filtered = append(filtered, item)
		}
	}
	return filtered, true
}

func (s *Store[T]) loadWindow(ctx context.Context, scope string, meta models.CacheMetadata, offset, limit int) ([]T, error) {
	k := s.keys(scope)
	start, end := window(meta.TotalCount, offset, limit)

	if !meta.IsChunked {
		var blob models.CacheBlob[T]
		if err := s.mustGetRecord(ctx, k.blob(), &blob, true); err != nil {
			return nil, err
		}
		if len(blob.Items) != meta.TotalCount {
			return nil, fmt.Errorf("%w: blob holds %d items, metadata %d", ErrCorruptCache, len(blob.Items), meta.TotalCount)
		}
		return blob.Items[start:end:end], nil
	}

	if start == end {
		return []T{}, nil
	}

	first, last := chunkSpan(start, end, meta.ChunkSize)
	items := make([]T, 0, (last-first+1)*meta.ChunkSize)
	for i := first; i <= last; i++ {
		chunk, err := s.readChunk(ctx, meta, i)
		if err != nil {
			return nil, err
		}
		items = append(items, chunk.Items...)
	}

	base := first * meta.ChunkSize
	return items[start-base : end-base : end-base], nil
}

func (s *Store[T]) readChunk(ctx context.Context, meta models.CacheMetadata, i int) (models.CacheChunk[T], error) {
	var chunk models.CacheChunk[T]
	if i < 0 || i >= len(meta.ChunkKeys) {
		return chunk, fmt.Errorf("%w: chunk %d of %d", ErrCorruptCache, i, len(meta.ChunkKeys))
	}

	if err := s.mustGetRecord(ctx, meta.ChunkKeys[i], &chunk, true); err != nil {
		return chunk, err
	}

	want := meta.ChunkSize
	if i == len(meta.ChunkKeys)-1 {
		want = meta.TotalCount - i*meta.ChunkSize
	}
	if chunk.ChunkIndex != i || len(chunk.Items) != want {
		return chunk, fmt.Errorf("%w: chunk %d has index %d and %d items, want %d",
			ErrCorruptCache, i, chunk.ChunkIndex, len(chunk.Items), want)
	}
	return chunk, nil
}

// ── Patch / Lookup ───────────────────────────────────────────────────────────

// Patch merges the non-zero fields of update into the entity with the given
// key and writes back only the chunk (or blob) holding it. Zero fields of
// update leave the cached values untouched; use [Store.Update] or
// [Store.Put] to clear a field.
func (s *Store[T]) Patch(ctx context.Context, scope, key string, update T) error {
	return s.modify(ctx, scope, key, func(target *T) error {
		if err := mergo.Merge(target, update, mergo.WithOverride); err != nil {
			return fmt.Errorf("merge %q: %w", key, err)
		}
		return nil
	})
}

// Update applies fn to the entity with the given key. fn may set any field,
// zero values included, but must not change the natural key.
func (s *Store[T]) Update(ctx context.Context, scope, key string, fn func(*T)) error {
	return s.modify(ctx, scope, key, func(target *T) error {
		fn(target)
		return nil
	})
}

// Put replaces the entity with the given key by item.
func (s *Store[T]) Put(ctx context.Context, scope, key string, item T) error {
	if s.keyOf(item) != key {
		return fmt.Errorf("%w: %q", ErrKeyChanged, key)
	}
	return s.modify(ctx, scope, key, func(target *T) error {
		*target = item
		return nil
	})
}

func (s *Store[T]) modify(ctx context.Context, scope, key string, fn func(*T) error) error {
	l := s.lock(scope)
	l.Lock()
	defer l.Unlock()

	meta, ok := s.readMeta(ctx, scope)
	if !ok {
		return ErrNotCached
	}

	idx, err := s.index(ctx, scope, meta, false)
	if err != nil {
		return err
	}

	patched, err := s.patchAt(ctx, scope, meta, &idx, key, fn)
	if errors.Is(err, errStaleIndex) {
		// the index pointed at a different entity; rebuild and try again
		if idx, err = s.index(ctx, scope, meta, true); err != nil {
			return err
		}
		patched, err = s.patchAt(ctx, scope, meta, &idx, key, fn)
	}
	if err != nil {
		return err
	}

	if !patched {
		return nil
	}
	if err = s.setRecord(ctx, s.keys(scope).index(), idx, false); err != nil {
		s.logger.Warn().Err(err).Str("func", "Store.modify").Str("scope", scope).Msg("failed to update index")
	}
	return nil
}

var errStaleIndex = errors.New("index entry is stale")

// patchAt applies fn at the indexed location. It reports whether the
// index changed and must be written.
func (s *Store[T]) patchAt(ctx context.Context, scope string, meta models.CacheMetadata, idx *models.CacheIndex, key string, fn func(*T) error) (bool, error) {
	loc, ok := idx.Locations[key]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrEntityNotFound, key)
	}

	k := s.keys(scope)

	var (
		items    []T
		recKey   string
		writeRec func() error
	)

	if meta.IsChunked {
		chunk, err := s.readChunk(ctx, meta, loc.Chunk)
		if err != nil {
			return false, err
		}
		items, recKey = chunk.Items, meta.ChunkKeys[loc.Chunk]
		writeRec = func() error { return s.setRecord(ctx, recKey, chunk, true) }
	} else {
		var blob models.CacheBlob[T]
		if err := s.mustGetRecord(ctx, k.blob(), &blob, true); err != nil {
			return false, err
		}
		items, recKey = blob.Items, k.blob()
		writeRec = func() error { return s.setRecord(ctx, recKey, blob, true) }
	}

	if loc.Position < 0 || loc.Position >= len(items) || s.keyOf(items[loc.Position]) != key {
		return false, errStaleIndex
	}

	target := &items[loc.Position]
	var oldStatus string
	if s.statusOf != nil {
		oldStatus = s.statusOf(*target)
	}

	updated := *target
	if err := fn(&updated); err != nil {
		return false, err
	}
	if s.keyOf(updated) != key {
		return false, fmt.Errorf("%w: %q", ErrKeyChanged, key)
	}
	*target = updated

	if err := writeRec(); err != nil {
		s.logger.Err(err).Str("func", "Store.patchAt").Str("scope", scope).Str("key", key).Msg("failed to write patched record")
		return false, err
	}

	if s.statusOf == nil {
		return false, nil
	}
	newStatus := s.statusOf(*target)
	if newStatus == oldStatus {
		return false, nil
	}
	moveStatus(idx, key, oldStatus, newStatus)
	return true, nil
}

// Lookup returns the entity with the given key, reading one chunk at most.
func (s *Store[T]) Lookup(ctx context.Context, scope, key string) (T, bool) {
	var zero T

	meta, ok := s.readMeta(ctx, scope)
	if !ok {
		return zero, false
	}

	idx, err := s.index(ctx, scope, meta, false)
	if err != nil {
		return zero, false
	}

	loc, ok := idx.Locations[key]
	if !ok {
		return zero, false
	}

	var items []T
	if meta.IsChunked {
		chunk, err := s.readChunk(ctx, meta, loc.Chunk)
		if err != nil {
			return zero, false
		}
		items = chunk.Items
	} else {
		var blob models.CacheBlob[T]
		if err := s.mustGetRecord(ctx, s.keys(scope).blob(), &blob, true); err != nil {
			return zero, false
		}
		items = blob.Items
	}

	if loc.Position < 0 || loc.Position >= len(items) || s.keyOf(items[loc.Position]) != key {
		return zero, false
	}
	return items[loc.Position], true
}

// StatusCounts returns the number of entities per status partition, read
// from the index only.
func (s *Store[T]) StatusCounts(ctx context.Context, scope string) map[string]int {
	meta, ok := s.readMeta(ctx, scope)
	if !ok {
		return map[string]int{}
	}

	idx, err := s.index(ctx, scope, meta, false)
	if err != nil {
		return map[string]int{}
	}

	counts := make(map[string]int, len(idx.ByStatus))
	for status, keys := range idx.ByStatus {
		counts[status] = len(keys)
	}
	return counts
}

// index returns the scope's index, rebuilding it from the stored items when
// it is missing, outdated or force is set.
func (s *Store[T]) index(ctx context.Context, scope string, meta models.CacheMetadata, force bool) (models.CacheIndex, error) {
	k := s.keys(scope)

	if !force {
		var idx models.CacheIndex
		found, err := s.getRecord(ctx, k.index(), &idx, false)
		if err == nil && found && idx.Timestamp.Equal(meta.Timestamp) {
			return idx, nil
		}
	}

	items, err := s.loadWindow(ctx, scope, meta, 0, 0)
	if err != nil {
		return models.CacheIndex{}, err
	}

	chunkSize := 0
	if meta.IsChunked {
		chunkSize = meta.ChunkSize
	}
	idx := buildIndex(items, s.keyOf, s.statusOf, chunkSize, meta.Timestamp)

	if err = s.setRecord(ctx, k.index(), idx, false); err != nil {
		s.logger.Warn().Err(err).Str("func", "Store.index").Str("scope", scope).Msg("failed to persist rebuilt index")
	}
	s.logger.Debug().Str("func", "Store.index").Str("scope", scope).Int("entries", len(idx.Locations)).Msg("index rebuilt")

	return idx, nil
}

// ── metadata-only queries ────────────────────────────────────────────────────

// Count returns the number of cached entities, reading metadata only.
func (s *Store[T]) Count(ctx context.Context, scope string) int {
	meta, ok := s.readMeta(ctx, scope)
	if !ok {
		return 0
	}
	return meta.TotalCount
}

// Metadata returns the scope's metadata record.
func (s *Store[T]) Metadata(ctx context.Context, scope string) (models.CacheMetadata, bool) {
	return s.readMeta(ctx, scope)
}

// IsFresh reports whether a collection saved at ts is within the TTL.
func (s *Store[T]) IsFresh(ts time.Time) bool {
	return s.now().Sub(ts) < s.cfg.Duration
}

// SizeEstimate sums the stored value lengths of every record of scope.
func (s *Store[T]) SizeEstimate(ctx context.Context, scope string) int64 {
	keys, err := s.scopeRecordKeys(ctx, scope)
	if err != nil {
		return 0
	}

	var total int64
	for _, key := range keys {
		value, ok, err := s.kv.GetItem(ctx, key)
		if err != nil || !ok {
			continue
		}
		total += int64(len(value))
	}
	return total
}

// Scopes lists every cached scope of this collection.
func (s *Store[T]) Scopes(ctx context.Context) []string {
	keys, err := s.kv.GetAllKeys(ctx)
	if err != nil {
		s.logger.Err(err).Str("func", "Store.Scopes").Msg("failed to list keys")
		return nil
	}

	var scopes []string
	for _, key := range keys {
		if scope, ok := scopeFromMetaKey(s.cfg.Collection, key); ok {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}

// ── Clear ────────────────────────────────────────────────────────────────────

// Clear removes every record of scope.
func (s *Store[T]) Clear(ctx context.Context, scope string) error {
	l := s.lock(scope)
	l.Lock()
	defer l.Unlock()

	return s.clear(ctx, scope)
}

func (s *Store[T]) clear(ctx context.Context, scope string) error {
	keys, err := s.scopeRecordKeys(ctx, scope)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	if err = s.kv.MultiRemove(ctx, keys...); err != nil {
		s.logger.Err(err).Str("func", "Store.clear").Str("scope", scope).Msg("failed to clear collection")
		return err
	}
	return nil
}

func (s *Store[T]) scopeRecordKeys(ctx context.Context, scope string) ([]string, error) {
	all, err := s.kv.GetAllKeys(ctx)
	if err != nil {
		s.logger.Err(err).Str("func", "Store.scopeRecordKeys").Str("scope", scope).Msg("failed to list keys")
		return nil, err
	}

	k := s.keys(scope)
	keys := make([]string, 0, 4)
	for _, key := range all {
		if k.owns(key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// ── record I/O ───────────────────────────────────────────────────────────────

func (s *Store[T]) readMeta(ctx context.Context, scope string) (models.CacheMetadata, bool) {
	var meta models.CacheMetadata
	found, err := s.getRecord(ctx, s.keys(scope).meta(), &meta, false)
	if err != nil || !found {
		return models.CacheMetadata{}, false
	}
	return meta, true
}

// getRecord decodes the value under key into v. Storage and decoding
// failures are logged and returned.
func (s *Store[T]) getRecord(ctx context.Context, key string, v any, encoded bool) (bool, error) {
	value, ok, err := s.kv.GetItem(ctx, key)
	if err != nil {
		s.logger.Err(err).Str("func", "Store.getRecord").Str("key", key).Msg("failed to read cache record")
		return false, err
	}
	if !ok {
		return false, nil
	}

	data := []byte(value)
	if encoded {
		if data, err = s.codec.Decode(value); err != nil {
			s.logger.Err(err).Str("func", "Store.getRecord").Str("key", key).Msg("failed to decode cache record")
			return false, fmt.Errorf("%w: %w", ErrCorruptCache, err)
		}
	}

	if err = json.Unmarshal(data, v); err != nil {
		s.logger.Err(err).Str("func", "Store.getRecord").Str("key", key).Msg("failed to unmarshal cache record")
		return false, fmt.Errorf("%w: %w", ErrCorruptCache, err)
	}
	return true, nil
}

// mustGetRecord is getRecord for records the metadata says exist.
func (s *Store[T]) mustGetRecord(ctx context.Context, key string, v any, encoded bool) error {
	found, err := s.getRecord(ctx, key, v, encoded)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s is missing", ErrCorruptCache, key)
	}
	return nil
}

func (s *Store[T]) setRecord(ctx context.Context, key string, v any, encoded bool) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	value := string(data)
	if encoded {
		value = s.codec.Encode(data)
	}
	return s.kv.SetItem(ctx, key, value)
}
