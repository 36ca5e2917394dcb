// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/store"
	"github.com/MKhiriev/go-checkin/internal/store/storetest"
	"github.com/MKhiriev/go-checkin/models"
)

// ── helpers ───────────────────────────────────────────────────────────────────

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestQueue(t *testing.T, cfg Config) (*Queue, *storetest.FaultyStore, *fakeClock) {
	t.Helper()
	kv := storetest.Wrap(store.NewMemoryKeyValueStore(0))
	clock := newFakeClock()
	return New(kv, cfg, logger.Nop(), WithClock(clock.Now)), kv, clock
}

func scan(code string) models.ScanTicketPayload {
	return models.ScanTicketPayload{Code: code, EventUUID: "E1"}
}

// ── Enqueue / dedup ───────────────────────────────────────────────────────────

func TestEnqueue_AssignsID(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	id, err := q.Enqueue(ctx, models.ActionScanTicket, scan("R04LERYMWD79R2PI"))
	require.NoError(t, err)
	assert.Regexp(t, `^scanTicket_\d+_[0-9a-f]{12}$`, id)

	items := q.DequeueAll(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, models.ActionScanTicket, items[0].Type)
	assert.Zero(t, items[0].RetryCount)
	assert.JSONEq(t, `{"code":"R04LERYMWD79R2PI","event_uuid":"E1","scanned_at":"0001-01-01T00:00:00Z"}`, string(items[0].Payload))
}

// TestEnqueue_DedupInvariant: same (type, natural key) within the window
// yields one item and the first id.
func TestEnqueue_DedupInvariant(t *testing.T) {
	q, _, clock := newTestQueue(t, Config{})
	ctx := context.Background()

	first, err := q.Enqueue(ctx, models.ActionScanTicket, scan("A1"))
	require.NoError(t, err)

	clock.Advance(4 * time.Minute)
	second, err := q.Enqueue(ctx, models.ActionScanTicket, scan("A1"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, q.Size(ctx))
}

func TestEnqueue_DedupWindowExpiry(t *testing.T) {
	q, _, clock := newTestQueue(t, Config{})
	ctx := context.Background()

	first, err := q.Enqueue(ctx, models.ActionScanTicket, scan("A1"))
	require.NoError(t, err)

	clock.Advance(DefaultDedupWindow)
	second, err := q.Enqueue(ctx, models.ActionScanTicket, scan("A1"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, q.Size(ctx))
}

// TestEnqueue_ScenarioC: two note updates for (A1, E1) within a minute.
func TestEnqueue_ScenarioC(t *testing.T) {
	q, _, clock := newTestQueue(t, Config{})
	ctx := context.Background()

	first, err := q.Enqueue(ctx, models.ActionUpdateNote, models.UpdateNotePayload{Code: "A1", EventUUID: "E1", Note: "first"})
	require.NoError(t, err)

	clock.Advance(time.Minute - time.Second)
	second, err := q.Enqueue(ctx, models.ActionUpdateNote, models.UpdateNotePayload{Code: "A1", EventUUID: "E1", Note: "second"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	items := q.DequeueAll(ctx)
	require.Len(t, items, 1)
	assert.Contains(t, string(items[0].Payload), `"note":"second"`, "newest note is replayed")
}

func TestEnqueue_DedupScope(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	_, err := q.Enqueue(ctx, models.ActionScanTicket, scan("A1"))
	require.NoError(t, err)
	// other event
	_, err = q.Enqueue(ctx, models.ActionScanTicket, models.ScanTicketPayload{Code: "A1", EventUUID: "E2"})
	require.NoError(t, err)
	// other type, same ticket
	_, err = q.Enqueue(ctx, models.ActionManualCheckin, models.ManualCheckinPayload{Code: "A1", EventUUID: "E1"})
	require.NoError(t, err)
	// other code
	_, err = q.Enqueue(ctx, models.ActionScanTicket, scan("A2"))
	require.NoError(t, err)

	assert.Equal(t, 4, q.Size(ctx))
}

func TestEnqueue_InvalidInput(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "deleteTicket", scan("A1"))
	assert.ErrorIs(t, err, ErrUnknownActionType)

	_, err = q.Enqueue(ctx, models.ActionScanTicket, models.ScanTicketPayload{Code: "A1"})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = q.Enqueue(ctx, models.ActionScanTicket, []byte("not json"))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	assert.Zero(t, q.Size(ctx))
}

// ── capacity ──────────────────────────────────────────────────────────────────

func TestEnqueue_QueueFull(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{MaxSize: 3})
	ctx := context.Background()

	for i := range 3 {
		_, err := q.Enqueue(ctx, models.ActionScanTicket, scan(fmt.Sprintf("T%d", i)))
		require.NoError(t, err)
	}

	_, err := q.Enqueue(ctx, models.ActionScanTicket, scan("T9"))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 3, q.Size(ctx))
}

// TestEnqueue_CapacityNeverEvictsRetryEligible: old items that still have
// retries left survive capacity pressure.
func TestEnqueue_CapacityNeverEvictsRetryEligible(t *testing.T) {
	q, _, clock := newTestQueue(t, Config{MaxSize: 2, MaxRetries: 3})
	ctx := context.Background()

	oldID, err := q.Enqueue(ctx, models.ActionScanTicket, scan("T1"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, models.ActionScanTicket, scan("T2"))
	require.NoError(t, err)
	q.IncrementRetry(ctx, oldID)
	q.IncrementRetry(ctx, oldID)

	clock.Advance(DefaultMaxAge + time.Hour)
	_, err = q.Enqueue(ctx, models.ActionScanTicket, scan("T3"))
	assert.ErrorIs(t, err, ErrQueueFull)

	// the third failure exhausts retries, now it is evictable
	assert.Equal(t, 3, q.IncrementRetry(ctx, oldID))
	newID, err := q.Enqueue(ctx, models.ActionScanTicket, scan("T3"))
	require.NoError(t, err)

	ids := make([]string, 0, 2)
	for _, item := range q.DequeueAll(ctx) {
		ids = append(ids, item.ID)
	}
	assert.NotContains(t, ids, oldID)
	assert.Contains(t, ids, newID)
}

func TestCleanup(t *testing.T) {
	q, _, clock := newTestQueue(t, Config{MaxRetries: 1})
	ctx := context.Background()

	exhausted, _ := q.Enqueue(ctx, models.ActionScanTicket, scan("T1"))
	_, _ = q.Enqueue(ctx, models.ActionScanTicket, scan("T2"))
	q.IncrementRetry(ctx, exhausted)

	assert.Zero(t, q.Cleanup(ctx), "nothing is old yet")

	clock.Advance(8 * 24 * time.Hour)
	recent, _ := q.Enqueue(ctx, models.ActionScanTicket, scan("T3"))
	q.IncrementRetry(ctx, recent)

	assert.Equal(t, 1, q.Cleanup(ctx))
	assert.Equal(t, 2, q.Size(ctx))
}

// ── DequeueAll / Remove / IncrementRetry ─────────────────────────────────────

func TestDequeueAll_PreservesInsertionOrder(t *testing.T) {
	q, _, clock := newTestQueue(t, Config{})
	ctx := context.Background()

	var want []string
	for i := range 5 {
		id, err := q.Enqueue(ctx, models.ActionScanTicket, scan(fmt.Sprintf("T%d", i)))
		require.NoError(t, err)
		want = append(want, id)
		clock.Advance(time.Millisecond)
	}

	var got []string
	for _, item := range q.DequeueAll(ctx) {
		got = append(got, item.ID)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 5, q.Size(ctx), "snapshot does not drain")
}

func TestRemove_Idempotent(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	a, _ := q.Enqueue(ctx, models.ActionScanTicket, scan("A"))
	b, _ := q.Enqueue(ctx, models.ActionScanTicket, scan("B"))
	c, _ := q.Enqueue(ctx, models.ActionScanTicket, scan("C"))

	q.Remove(ctx, a, c)
	q.Remove(ctx, a, "missing")
	q.Remove(ctx)

	items := q.DequeueAll(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, b, items[0].ID)
}

func TestIncrementRetry(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	id, _ := q.Enqueue(ctx, models.ActionScanTicket, scan("A"))

	assert.Equal(t, 1, q.IncrementRetry(ctx, id))
	assert.Equal(t, 2, q.IncrementRetry(ctx, id))
	assert.Zero(t, q.IncrementRetry(ctx, "missing"))
	assert.Equal(t, 2, q.DequeueAll(ctx)[0].RetryCount)
}

func TestClear(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	_, _ = q.Enqueue(ctx, models.ActionScanTicket, scan("A"))
	require.NoError(t, q.Clear(ctx))
	assert.Zero(t, q.Size(ctx))
}

// ── storage failures ──────────────────────────────────────────────────────────

func TestStorageFailures(t *testing.T) {
	q, kv, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	id, err := q.Enqueue(ctx, models.ActionScanTicket, scan("A"))
	require.NoError(t, err)

	kv.FailWrites(errors.New("disk gone"))
	_, err = q.Enqueue(ctx, models.ActionScanTicket, scan("B"))
	assert.ErrorIs(t, err, store.ErrStorage)
	assert.Zero(t, q.IncrementRetry(ctx, id))
	q.Remove(ctx, id)
	kv.FailWrites(nil)

	assert.Equal(t, 1, q.Size(ctx), "failed writes leave the queue untouched")

	kv.FailReads(errors.New("io error"))
	assert.Empty(t, q.DequeueAll(ctx))
	assert.Zero(t, q.Size(ctx))
	_, err = q.Enqueue(ctx, models.ActionScanTicket, scan("C"))
	assert.ErrorIs(t, err, store.ErrStorage, "unreadable queue is never overwritten")
	kv.FailReads(nil)

	assert.Equal(t, 1, q.Size(ctx))
}

func TestCorruptQueueStartsEmpty(t *testing.T) {
	q, kv, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	require.NoError(t, kv.SetItem(ctx, StorageKey, "{broken"))
	assert.Zero(t, q.Size(ctx))

	_, err := q.Enqueue(ctx, models.ActionScanTicket, scan("A"))
	require.NoError(t, err)
	assert.Equal(t, 1, q.Size(ctx))
}

// ── concurrency ───────────────────────────────────────────────────────────────

// TestEnqueue_ConcurrentWritersDoNotClobber runs concurrent read-modify-write
// cycles against one key; none may be lost.
func TestEnqueue_ConcurrentWritersDoNotClobber(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Enqueue(ctx, models.ActionScanTicket, scan(fmt.Sprintf("T%d", i)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, q.Size(ctx))
}
