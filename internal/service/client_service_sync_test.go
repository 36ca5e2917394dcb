// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-checkin/internal/adapter"
	"github.com/MKhiriev/go-checkin/internal/config"
	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/mock"
	"github.com/MKhiriev/go-checkin/internal/queue"
	"github.com/MKhiriev/go-checkin/internal/store"
	"github.com/MKhiriev/go-checkin/models"
)

// eventLog records handler calls and inter-batch sleeps in order.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func newTestSyncSvc(env *testEnv, handlers HandlerRegistry, cfg config.Sync, log *eventLog) *clientSyncService {
	return NewClientSyncService(env.queue, env.monitor, env.tickets, handlers, cfg, logger.Nop(),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			if log != nil {
				log.add("sleep")
			}
			return ctx.Err()
		}),
	).(*clientSyncService)
}

func okHandler(log *eventLog) ActionHandler {
	return func(_ context.Context, item models.QueueItem) (models.RemoteResult, error) {
		if log != nil {
			log.add("call")
		}
		return models.RemoteResult{}, nil
	}
}

func failingHandler(err error, calls *atomic.Int32) ActionHandler {
	return func(context.Context, models.QueueItem) (models.RemoteResult, error) {
		if calls != nil {
			calls.Add(1)
		}
		return models.RemoteResult{}, err
	}
}

// ── Scenario A ───────────────────────────────────────────────────────────────

func TestSync_SingleScan(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newTestEnv(t)
	ctx := context.Background()

	const code = "R04LERYMWD79R2PI"
	require.NoError(t, env.tickets.Save(ctx, "E1", []models.Ticket{
		{Code: code, EventUUID: "E1", CheckinStatus: models.CheckinStatusUnscanned, HolderName: "Ada"},
	}))
	env.enqueueScan(t, "E1", code)

	scannedAt := env.clock.Now()
	mockAdapter := mock.NewMockServerAdapter(ctrl)
	mockAdapter.EXPECT().ScanTicket(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p models.ScanTicketPayload) (models.RemoteResult, error) {
			assert.Equal(t, code, p.Code)
			assert.Equal(t, "E1", p.EventUUID)
			return models.RemoteResult{Ticket: &models.Ticket{
				Code:          code,
				EventUUID:     "E1",
				HolderName:    "Ada",
				CheckinStatus: models.CheckinStatusScanned,
				ScannedAt:     &scannedAt,
			}}, nil
		},
	)

	svc := newTestSyncSvc(env, NewHandlerRegistry(mockAdapter), config.Sync{}, nil)
	result, err := svc.Sync(ctx, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.Total)
	assert.True(t, result.Success())
	assert.Zero(t, env.queue.Size(ctx))

	ticket, ok := env.tickets.Lookup(ctx, "E1", code)
	require.True(t, ok)
	assert.True(t, ticket.Scanned())
	assert.Equal(t, "Ada", ticket.HolderName)
}

func TestSync_ServerStateReplacesCachedTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.tickets.Save(ctx, "E1", []models.Ticket{
		{Code: "T1", EventUUID: "E1", CheckinStatus: models.CheckinStatusScanned, Note: "old note", ManualCheckin: true},
	}))
	env.enqueueNote(t, "E1", "T1", "")

	handler := func(context.Context, models.QueueItem) (models.RemoteResult, error) {
		return models.RemoteResult{Ticket: &models.Ticket{
			Code:          "T1",
			CheckinStatus: models.CheckinStatusUnscanned,
		}}, nil
	}

	svc := newTestSyncSvc(env, HandlerRegistry{models.ActionUpdateNote: handler}, config.Sync{}, nil)
	result, err := svc.Sync(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)

	ticket, ok := env.tickets.Lookup(ctx, "E1", "T1")
	require.True(t, ok)
	assert.Empty(t, ticket.Note)
	assert.False(t, ticket.ManualCheckin)
	assert.False(t, ticket.Scanned())
	assert.Equal(t, "E1", ticket.EventUUID, "identity filled from the queued action")
}

// ── Scenario B ───────────────────────────────────────────────────────────────

func TestSync_Batches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := range 120 {
		env.enqueueScan(t, "E1", fmt.Sprintf("T%d", i))
	}

	log := &eventLog{}
	svc := newTestSyncSvc(env, HandlerRegistry{models.ActionScanTicket: okHandler(log)}, config.Sync{BatchSize: 50}, log)

	var progress []models.SyncProgress
	result, err := svc.Sync(ctx, func(p models.SyncProgress) {
		progress = append(progress, p)
	})

	require.NoError(t, err)
	assert.Equal(t, 120, result.Synced)
	assert.Zero(t, env.queue.Size(ctx))

	events := log.snapshot()
	require.Len(t, events, 122)

	var sleeps []int
	for i, e := range events {
		if e == "sleep" {
			sleeps = append(sleeps, i)
		}
	}
	// 50 calls, sleep, 50 calls, sleep, 20 calls
	assert.Equal(t, []int{50, 101}, sleeps)

	require.Len(t, progress, 120)
	assert.Equal(t, models.SyncProgress{Processed: 120, Total: 120, Batch: 3, Batches: 3}, progress[119])
	assert.Equal(t, 1, progress[0].Batch)
	assert.Equal(t, 2, progress[50].Batch)
	for i, p := range progress {
		assert.Equal(t, i+1, p.Processed)
	}
}

func TestSync_SingleBatchDoesNotSleep(t *testing.T) {
	env := newTestEnv(t)
	for i := range 50 {
		env.enqueueScan(t, "E1", fmt.Sprintf("T%d", i))
	}

	log := &eventLog{}
	svc := newTestSyncSvc(env, HandlerRegistry{models.ActionScanTicket: okHandler(log)}, config.Sync{BatchSize: 50}, log)

	_, err := svc.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.NotContains(t, log.snapshot(), "sleep")
}

// ── Scenario E ───────────────────────────────────────────────────────────────

func TestSync_ConnectivityErrorMidBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.enqueueScan(t, "E1", "T1")
	failID := env.enqueueScan(t, "E1", "T2")
	env.enqueueScan(t, "E1", "T3")

	handler := func(_ context.Context, item models.QueueItem) (models.RemoteResult, error) {
		if item.ID == failID {
			return models.RemoteResult{}, connRefused()
		}
		return models.RemoteResult{}, nil
	}

	svc := newTestSyncSvc(env, HandlerRegistry{models.ActionScanTicket: handler}, config.Sync{}, nil)
	result, err := svc.Sync(ctx, nil)

	require.NoError(t, err)
	assert.False(t, env.monitor.IsConnected())
	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, result.PermanentFailures)
	assert.Empty(t, result.Errors)

	remaining := env.queue.DequeueAll(ctx)
	require.Len(t, remaining, 1)
	assert.Equal(t, failID, remaining[0].ID)
	assert.Equal(t, 1, remaining[0].RetryCount)
}

func TestSync_RunsAllBatchesAfterConnectionLoss(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.enqueueScan(t, "E1", "T0")
	for i := 1; i < 120; i++ {
		env.enqueueScan(t, "E1", fmt.Sprintf("T%d", i))
	}

	var calls atomic.Int32
	handler := func(_ context.Context, item models.QueueItem) (models.RemoteResult, error) {
		calls.Add(1)
		if item.ID == first {
			return models.RemoteResult{}, connRefused()
		}
		return models.RemoteResult{}, nil
	}

	log := &eventLog{}
	svc := newTestSyncSvc(env, HandlerRegistry{models.ActionScanTicket: handler}, config.Sync{BatchSize: 50}, log)

	result, err := svc.Sync(ctx, nil)

	require.NoError(t, err)
	assert.False(t, env.monitor.IsConnected())
	assert.Equal(t, int32(120), calls.Load())
	assert.Equal(t, 120, result.Total)
	assert.Equal(t, 119, result.Synced)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, result.Total, result.Synced+result.Failed)
	assert.Equal(t, []string{"sleep", "sleep"}, log.snapshot())

	remaining := env.queue.DequeueAll(ctx)
	require.Len(t, remaining, 1)
	assert.Equal(t, first, remaining[0].ID)
	assert.Equal(t, 1, remaining[0].RetryCount)
}

// ── retry bound ──────────────────────────────────────────────────────────────

func TestSync_RetryBound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.enqueueScan(t, "E1", "T1")

	appErr := adapter.NewAPIError(500, "boom")
	var calls atomic.Int32
	svc := newTestSyncSvc(env, HandlerRegistry{models.ActionScanTicket: failingHandler(appErr, &calls)},
		config.Sync{MaxRetries: 3}, nil)

	for run := 1; run <= 2; run++ {
		result, err := svc.Sync(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)
		assert.Empty(t, result.Errors)

		items := env.queue.DequeueAll(ctx)
		require.Len(t, items, 1)
		assert.Equal(t, run, items[0].RetryCount)
	}

	result, err := svc.Sync(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.PermanentFailures)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, id, result.Errors[0].Item.ID)
	assert.Equal(t, 3, result.Errors[0].Item.RetryCount)
	assert.ErrorIs(t, result.Errors[0].Err, ErrRetriesExhausted)
	assert.ErrorIs(t, result.Errors[0].Err, adapter.ErrInternalServerError)
	assert.Zero(t, env.queue.Size(ctx))

	// never retried a fourth time
	_, err = svc.Sync(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.True(t, env.monitor.IsConnected(), "an HTTP error does not flip the monitor")
}

func TestSync_DropsExhaustedItemWithoutReplay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	exhausted := env.enqueueScan(t, "E1", "T1")
	env.queue.IncrementRetry(ctx, exhausted)
	env.queue.IncrementRetry(ctx, exhausted)
	env.enqueueScan(t, "E1", "T2")

	log := &eventLog{}
	svc := newTestSyncSvc(env, HandlerRegistry{models.ActionScanTicket: okHandler(log)}, config.Sync{MaxRetries: 2}, nil)

	result, err := svc.Sync(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"call"}, log.snapshot())
	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.PermanentFailures)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, exhausted, result.Errors[0].Item.ID)
	assert.ErrorIs(t, result.Errors[0].Err, ErrRetriesExhausted)
	assert.Zero(t, env.queue.Size(ctx))
}

// dropFailingStore fails the first write that empties the action queue.
type dropFailingStore struct {
	store.KeyValueStore
	failed atomic.Bool
}

func (d *dropFailingStore) SetItem(ctx context.Context, key, value string) error {
	if key == queue.StorageKey && value == "[]" && d.failed.CompareAndSwap(false, true) {
		return store.ErrStorage
	}
	return d.KeyValueStore.SetItem(ctx, key, value)
}

func TestSync_FailedFinalRemovalLeavesItemExhausted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	kv := &dropFailingStore{KeyValueStore: env.kv}
	env.queue = queue.New(kv, queue.Config{MaxRetries: 1}, logger.Nop(), queue.WithClock(env.clock.Now))
	env.enqueueScan(t, "E1", "T1")

	var calls atomic.Int32
	svc := newTestSyncSvc(env, HandlerRegistry{models.ActionScanTicket: failingHandler(adapter.NewAPIError(500, "boom"), &calls)},
		config.Sync{MaxRetries: 1}, nil)

	result, err := svc.Sync(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PermanentFailures)

	items := env.queue.DequeueAll(ctx)
	require.Len(t, items, 1, "removal failed")
	assert.True(t, items[0].Exhausted(1))

	result, err = svc.Sync(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PermanentFailures)
	assert.Equal(t, int32(1), calls.Load(), "exhausted item is not replayed")
	assert.Zero(t, env.queue.Size(ctx))
}

func TestSync_UnknownActionTypeIsPermanent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enqueueNote(t, "E1", "T1", "vip")

	svc := newTestSyncSvc(env, HandlerRegistry{}, config.Sync{}, nil)
	result, err := svc.Sync(ctx, nil)

	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0].Err, ErrNoHandler)
	assert.Zero(t, env.queue.Size(ctx))
}

// ── preconditions ────────────────────────────────────────────────────────────

func TestSync_Offline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enqueueScan(t, "E1", "T1")
	env.monitor.SetOnlineStatus(false)

	var calls atomic.Int32
	svc := newTestSyncSvc(env, HandlerRegistry{models.ActionScanTicket: failingHandler(nil, &calls)}, config.Sync{}, nil)

	notified := false
	svc.AddListener(func(models.SyncResult) { notified = true })

	result, err := svc.Sync(ctx, nil)

	assert.ErrorIs(t, err, ErrOffline)
	assert.Equal(t, models.SyncResult{}, result)
	assert.Zero(t, calls.Load())
	assert.False(t, notified)
	assert.Equal(t, 1, env.queue.Size(ctx))
}

func TestSync_InProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enqueueScan(t, "E1", "T1")

	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := func(context.Context, models.QueueItem) (models.RemoteResult, error) {
		close(entered)
		<-release
		return models.RemoteResult{}, nil
	}
	svc := newTestSyncSvc(env, HandlerRegistry{models.ActionScanTicket: blocking}, config.Sync{}, nil)

	done := make(chan models.SyncResult)
	go func() {
		result, _ := svc.Sync(ctx, nil)
		done <- result
	}()

	<-entered
	assert.True(t, svc.IsSyncing())

	result, err := svc.Sync(ctx, nil)
	assert.ErrorIs(t, err, ErrSyncInProgress)
	assert.Equal(t, models.SyncResult{}, result)

	close(release)
	first := <-done
	assert.Equal(t, 1, first.Synced)
	assert.False(t, svc.IsSyncing())
}

func TestSync_EmptyQueue(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestSyncSvc(env, HandlerRegistry{}, config.Sync{}, nil)

	result, err := svc.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.True(t, result.Success())
}

// ── ordering ─────────────────────────────────────────────────────────────────

func TestSync_SameTicketRunsInQueueOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scanID := env.enqueueScan(t, "E1", "T1")
	noteID := env.enqueueNote(t, "E1", "T1", "first")
	env.enqueueScan(t, "E1", "T2")

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(ctx context.Context, item models.QueueItem) (models.RemoteResult, error) {
		if item.ID == scanID {
			// give a racing dispatch of the note a chance to overtake
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		order = append(order, item.ID)
		mu.Unlock()
		return models.RemoteResult{}, nil
	}

	svc := newTestSyncSvc(env, HandlerRegistry{
		models.ActionScanTicket: record,
		models.ActionUpdateNote: record,
	}, config.Sync{}, nil)

	result, err := svc.Sync(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Synced)

	scanPos, notePos := -1, -1
	for i, id := range order {
		switch id {
		case scanID:
			scanPos = i
		case noteID:
			notePos = i
		}
	}
	assert.Less(t, scanPos, notePos)
}

func TestSync_SnapshotExcludesItemsEnqueuedDuringRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enqueueScan(t, "E1", "T1")

	var once sync.Once
	handler := func(ctx context.Context, item models.QueueItem) (models.RemoteResult, error) {
		once.Do(func() {
			_, _ = env.queue.Enqueue(ctx, models.ActionScanTicket,
				models.ScanTicketPayload{Code: "LATE", EventUUID: "E1"})
		})
		return models.RemoteResult{}, nil
	}
	svc := newTestSyncSvc(env, HandlerRegistry{models.ActionScanTicket: handler}, config.Sync{}, nil)

	result, err := svc.Sync(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, env.queue.Size(ctx))
}

// ── listeners ────────────────────────────────────────────────────────────────

func TestSync_Listeners(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enqueueScan(t, "E1", "T1")

	svc := newTestSyncSvc(env, HandlerRegistry{models.ActionScanTicket: okHandler(nil)}, config.Sync{}, nil)

	var got []models.SyncResult
	svc.AddListener(func(models.SyncResult) { panic("listener bug") })
	unsubscribe := svc.AddListener(func(r models.SyncResult) {
		assert.False(t, svc.IsSyncing(), "listeners run after the run ended")
		got = append(got, r)
	})

	_, err := svc.Sync(ctx, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Synced)

	unsubscribe()
	unsubscribe()
	_, err = svc.Sync(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type recorderSpy struct {
	results []models.SyncResult
}

func (r *recorderSpy) ObserveSync(result models.SyncResult) {
	r.results = append(r.results, result)
}

func TestSync_Recorder(t *testing.T) {
	env := newTestEnv(t)
	env.enqueueScan(t, "E1", "T1")

	spy := &recorderSpy{}
	svc := NewClientSyncService(env.queue, env.monitor, env.tickets,
		HandlerRegistry{models.ActionScanTicket: okHandler(nil)}, config.Sync{}, logger.Nop(),
		WithSyncRecorder(spy), WithSleep(func(context.Context, time.Duration) error { return nil }))

	_, err := svc.Sync(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, spy.results, 1)
	assert.Equal(t, 1, spy.results[0].Synced)
}

// ── handler registry ─────────────────────────────────────────────────────────

func TestHandlerRegistry_InvalidPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewHandlerRegistry(mock.NewMockServerAdapter(ctrl))
	require.Len(t, registry, len(models.ActionTypes))

	_, err := registry[models.ActionUpdateNote](context.Background(), models.QueueItem{
		ID:      "x",
		Type:    models.ActionUpdateNote,
		Payload: []byte(`not json`),
	})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoHandler))
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
