// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MKhiriev/go-checkin/internal/cache"
	"github.com/MKhiriev/go-checkin/internal/config"
	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/netmon"
	"github.com/MKhiriev/go-checkin/internal/queue"
	"github.com/MKhiriev/go-checkin/models"
)

// Defaults used when a [config.Sync] field is zero.
const (
	DefaultBatchSize       = 50
	DefaultInterBatchDelay = time.Second
	DefaultMaxRetries      = queue.DefaultMaxRetries
)

// SyncRecorder observes finished sync runs, e.g. for metrics.
type SyncRecorder interface {
	ObserveSync(result models.SyncResult)
}

// SyncOption configures the sync service.
type SyncOption func(*clientSyncService)

// WithSleep replaces the inter-batch wait, for tests. sleep must return
// ctx.Err() when ctx ends first.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) SyncOption {
	return func(s *clientSyncService) {
		s.sleep = sleep
	}
}

// WithSyncRecorder reports every finished run to r.
func WithSyncRecorder(r SyncRecorder) SyncOption {
	return func(s *clientSyncService) {
		s.recorder = r
	}
}

type listenerEntry struct {
	id uint64
	fn SyncListener
}

type clientSyncService struct {
	queue    *queue.Queue
	monitor  *netmon.Monitor
	tickets  *cache.Store[models.Ticket]
	handlers HandlerRegistry
	cfg      config.Sync
	recorder SyncRecorder
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *logger.Logger

	syncing atomic.Bool

	mu        sync.Mutex
	listeners []listenerEntry
	nextID    uint64
}

// NewClientSyncService creates the sync service. tickets may be nil, in
// which case authoritative results are not written back to the cache.
func NewClientSyncService(
	actionQueue *queue.Queue,
	monitor *netmon.Monitor,
	tickets *cache.Store[models.Ticket],
	handlers HandlerRegistry,
	cfg config.Sync,
	log *logger.Logger,
	opts ...SyncOption,
) ClientSyncService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.InterBatchDelay < 0 {
		cfg.InterBatchDelay = 0
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	s := &clientSyncService{
		queue:    actionQueue,
		monitor:  monitor,
		tickets:  tickets,
		handlers: handlers,
		cfg:      cfg,
		sleep:    sleepContext,
		logger:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsSyncing implements [ClientSyncService].
func (s *clientSyncService) IsSyncing() bool {
	return s.syncing.Load()
}

// AddListener implements [ClientSyncService]. Listeners are called in
// registration order.
func (s *clientSyncService) AddListener(l SyncListener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: l})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, e := range s.listeners {
				if e.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Sync implements [ClientSyncService].
//
// The queue is read once; items enqueued during the run wait for the next
// one. The snapshot is dispatched in batches of BatchSize with
// InterBatchDelay between batches. Within a batch, items of the same ticket
// run one after another in queue order while different tickets run
// concurrently. A run stops after the current batch when the monitor goes
// offline or ctx ends; undispatched items stay queued untouched.
func (s *clientSyncService) Sync(ctx context.Context, onProgress ProgressFunc) (models.SyncResult, error) {
	if !s.monitor.IsConnected() {
		return models.SyncResult{}, ErrOffline
	}
	if !s.syncing.CompareAndSwap(false, true) {
		return models.SyncResult{}, ErrSyncInProgress
	}

	started := time.Now()
	items := s.queue.DequeueAll(ctx)
	batches := splitBatches(items, s.cfg.BatchSize)

	run := &syncRun{
		result:     models.SyncResult{Total: len(items)},
		batches:    len(batches),
		onProgress: onProgress,
	}

	s.logger.Info().
		Str("func", "clientSyncService.Sync").
		Int("items", len(items)).
		Int("batches", len(batches)).
		Msg("sync started")

	for i, batch := range batches {
		if i > 0 {
			if err := s.sleep(ctx, s.cfg.InterBatchDelay); err != nil {
				break
			}
		}

		run.startBatch(i + 1)
		s.dispatchBatch(ctx, run, batch)

		if ctx.Err() != nil {
			break
		}
	}

	result := run.finish(time.Since(started))
	s.syncing.Store(false)

	s.logger.Info().
		Str("func", "clientSyncService.Sync").
		Int("synced", result.Synced).
		Int("failed", result.Failed).
		Int("permanent_failures", result.PermanentFailures).
		Int("total", result.Total).
		Dur("duration", result.Duration).
		Msg("sync finished")

	if s.recorder != nil {
		s.recorder.ObserveSync(result)
	}
	s.notify(result)

	return result, nil
}

func splitBatches(items []models.QueueItem, size int) [][]models.QueueItem {
	batches := make([][]models.QueueItem, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches
}

// groupByTicket splits a batch into per-ticket sequences in queue order.
// Items whose payload names no ticket form their own group.
func groupByTicket(batch []models.QueueItem) [][]models.QueueItem {
	groups := make([][]models.QueueItem, 0, len(batch))
	index := make(map[string]int, len(batch))

	for _, item := range batch {
		key := item.ID
		if ref, err := item.Entity(); err == nil && ref.Code != "" {
			key = ref.Key()
		}

		if i, ok := index[key]; ok {
			groups[i] = append(groups[i], item)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, []models.QueueItem{item})
	}
	return groups
}

func (s *clientSyncService) dispatchBatch(ctx context.Context, run *syncRun, batch []models.QueueItem) {
	var g errgroup.Group
	g.SetLimit(s.cfg.BatchSize)

	for _, group := range groupByTicket(batch) {
		g.Go(func() error {
			for _, item := range group {
				s.dispatch(ctx, run, item)
			}
			return nil
		})
	}

	_ = g.Wait()
}

// dispatch replays one item and settles it in the queue.
func (s *clientSyncService) dispatch(ctx context.Context, run *syncRun, item models.QueueItem) {
	if ctx.Err() != nil {
		return
	}

	if item.Exhausted(s.cfg.MaxRetries) {
		s.logger.Warn().Str("func", "clientSyncService.dispatch").Str("id", item.ID).Int("attempts", item.RetryCount).Msg("dropping exhausted action")
		s.queue.Remove(ctx, item.ID)
		run.failed(item, fmt.Errorf("%w: %d attempts", ErrRetriesExhausted, item.RetryCount))
		return
	}

	handler, ok := s.handlers[item.Type]
	if !ok {
		err := fmt.Errorf("%w: %q", ErrNoHandler, item.Type)
		s.logger.Error().Str("func", "clientSyncService.dispatch").Str("id", item.ID).Msg(err.Error())
		s.queue.Remove(ctx, item.ID)
		run.failed(item, err)
		return
	}

	res, err := handler(ctx, item)
	if err == nil {
		s.queue.Remove(ctx, item.ID)
		s.applyResult(ctx, item, res)
		run.synced()
		return
	}

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// shutting down; the attempt does not count against the item
		return
	}

	if netmon.IsNetworkError(err) {
		s.monitor.SetOnlineStatus(false)
	}

	item.RetryCount++
	// the count is persisted before removal, so an item whose removal
	// fails stays exhausted and is dropped by the next run or by cleanup
	s.queue.IncrementRetry(ctx, item.ID)

	if item.Exhausted(s.cfg.MaxRetries) {
		s.logger.Err(err).
			Str("func", "clientSyncService.dispatch").
			Str("id", item.ID).
			Str("type", item.Type.String()).
			Int("attempts", item.RetryCount).
			Msg("dropping action after final retry")
		s.queue.Remove(ctx, item.ID)
		run.failed(item, fmt.Errorf("%w: %w", ErrRetriesExhausted, err))
		return
	}

	s.logger.Warn().
		Err(err).
		Str("func", "clientSyncService.dispatch").
		Str("id", item.ID).
		Int("attempts", item.RetryCount).
		Msg("action failed, will retry")
	run.failed(item, nil)
}

// applyResult replaces the cached ticket with the server's state.
func (s *clientSyncService) applyResult(ctx context.Context, item models.QueueItem, res models.RemoteResult) {
	if s.tickets == nil || res.Ticket == nil {
		return
	}

	ref, err := item.Entity()
	if err != nil {
		return
	}

	err = s.tickets.Put(ctx, ref.EventUUID, ref.Code, serverTicket(ref, *res.Ticket))
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrNotCached), errors.Is(err, cache.ErrEntityNotFound):
		s.logger.Debug().Str("func", "clientSyncService.applyResult").Str("ticket", ref.Key()).Msg("ticket not cached, result not applied")
	default:
		s.logger.Warn().Err(err).Str("func", "clientSyncService.applyResult").Str("ticket", ref.Key()).Msg("failed to apply result to cache")
	}
}

func (s *clientSyncService) notify(result models.SyncResult) {
	s.mu.Lock()
	listeners := make([]SyncListener, len(s.listeners))
	for i, e := range s.listeners {
		listeners[i] = e.fn
	}
	s.mu.Unlock()

	for _, l := range listeners {
		s.callListener(l, result)
	}
}

func (s *clientSyncService) callListener(l SyncListener, result models.SyncResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("func", "clientSyncService.callListener").Interface("panic", r).Msg("sync listener panicked")
		}
	}()
	l(result)
}

// syncRun accumulates the outcome of one run across dispatch goroutines.
type syncRun struct {
	mu         sync.Mutex
	result     models.SyncResult
	processed  int
	batch      int
	batches    int
	onProgress ProgressFunc
}

func (r *syncRun) startBatch(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batch = n
}

func (r *syncRun) synced() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Synced++
	r.progress()
}

// failed counts a failed dispatch. A non-nil err marks it permanent.
func (r *syncRun) failed(item models.QueueItem, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Failed++
	if err != nil {
		r.result.PermanentFailures++
		r.result.Errors = append(r.result.Errors, models.SyncError{Item: item, Err: err})
	}
	r.progress()
}

// progress must be called with mu held so reports stay ordered.
func (r *syncRun) progress() {
	r.processed++
	if r.onProgress == nil {
		return
	}
	r.onProgress(models.SyncProgress{
		Processed: r.processed,
		Total:     r.result.Total,
		Batch:     r.batch,
		Batches:   r.batches,
	})
}

func (r *syncRun) finish(d time.Duration) models.SyncResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Duration = d
	return r.result
}
