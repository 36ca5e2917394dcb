// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"
	"net"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-checkin/internal/cache"
	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/netmon"
	"github.com/MKhiriev/go-checkin/internal/queue"
	"github.com/MKhiriev/go-checkin/internal/store"
	"github.com/MKhiriev/go-checkin/models"
)

// testClock is a settable clock shared by the queue and the cache.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv holds the real queue, cache and monitor over an in-memory store.
type testEnv struct {
	kv      *store.MemoryKeyValueStore
	storage *store.ClientStorages
	queue   *queue.Queue
	tickets *cache.Store[models.Ticket]
	monitor *netmon.Monitor
	clock   *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	kv := store.NewMemoryKeyValueStore(0)
	clock := newTestClock()

	return &testEnv{
		kv:      kv,
		storage: &store.ClientStorages{KeyValueStore: kv},
		queue:   queue.New(kv, queue.Config{}, logger.Nop(), queue.WithClock(clock.Now)),
		tickets: cache.New(kv, cache.Config{Collection: "tickets", ChunkSize: 100}, models.TicketKey, models.TicketStatus,
			logger.Nop(), cache.WithClock[models.Ticket](clock.Now)),
		monitor: netmon.NewMonitor(logger.Nop()),
		clock:   clock,
	}
}

func (e *testEnv) enqueueScan(t *testing.T, event, code string) string {
	t.Helper()
	id, err := e.queue.Enqueue(context.Background(), models.ActionScanTicket,
		models.ScanTicketPayload{Code: code, EventUUID: event, ScannedAt: e.clock.Now()})
	require.NoError(t, err)
	return id
}

func (e *testEnv) enqueueNote(t *testing.T, event, code, note string) string {
	t.Helper()
	id, err := e.queue.Enqueue(context.Background(), models.ActionUpdateNote,
		models.UpdateNotePayload{Code: code, EventUUID: event, Note: note})
	require.NoError(t, err)
	return id
}

func (e *testEnv) cacheTickets(t *testing.T, event string, n int) []models.Ticket {
	t.Helper()
	tickets := make([]models.Ticket, n)
	for i := range tickets {
		tickets[i] = models.Ticket{
			Code:          fmt.Sprintf("T%d", i),
			EventUUID:     event,
			HolderName:    fmt.Sprintf("Holder %d", i),
			CheckinStatus: models.CheckinStatusUnscanned,
		}
	}
	require.NoError(t, e.tickets.Save(context.Background(), event, tickets))
	return tickets
}

// connRefused is a connectivity failure as returned by the HTTP transport.
func connRefused() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
}
