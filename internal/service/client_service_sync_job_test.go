// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/netmon"
	"github.com/MKhiriev/go-checkin/models"
)

// spySyncService counts Sync calls.
type spySyncService struct {
	calls atomic.Int64
	err   error
}

func (s *spySyncService) Sync(context.Context, ProgressFunc) (models.SyncResult, error) {
	s.calls.Add(1)
	return models.SyncResult{}, s.err
}

func (s *spySyncService) IsSyncing() bool { return false }

func (s *spySyncService) AddListener(SyncListener) func() { return func() {} }

// ── NewClientSyncJob ─────────────────────────────────────────────────────────

func TestNewClientSyncJob_ReturnsInterface(t *testing.T) {
	job := NewClientSyncJob(&spySyncService{}, netmon.NewMonitor(logger.Nop()), logger.Nop())
	require.NotNil(t, job)

	var _ ClientSyncJob = job
}

// ── Start / Stop ─────────────────────────────────────────────────────────────

func TestClientSyncJob_Start_SyncsOnInterval(t *testing.T) {
	spy := &spySyncService{}
	job := NewClientSyncJob(spy, netmon.NewMonitor(logger.Nop()), logger.Nop())

	job.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(55 * time.Millisecond)
	job.Stop()

	got := spy.calls.Load()
	assert.GreaterOrEqual(t, got, int64(3), "Sync called %d times", got)
}

func TestClientSyncJob_SyncsOnReconnect(t *testing.T) {
	spy := &spySyncService{}
	monitor := netmon.NewMonitor(logger.Nop(), netmon.WithInitialState(false))
	job := NewClientSyncJob(spy, monitor, logger.Nop())

	job.Start(context.Background(), 0)
	defer job.Stop()

	monitor.SetOnlineStatus(true)

	assert.Eventually(t, func() bool {
		return spy.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// going offline does not trigger a run
	monitor.SetOnlineStatus(false)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), spy.calls.Load())
}

func TestClientSyncJob_NoIntervalNoTicks(t *testing.T) {
	spy := &spySyncService{}
	job := NewClientSyncJob(spy, netmon.NewMonitor(logger.Nop()), logger.Nop())

	job.Start(context.Background(), 0)
	time.Sleep(30 * time.Millisecond)
	job.Stop()

	assert.Zero(t, spy.calls.Load())
}

func TestClientSyncJob_Stop_StopsGoroutine(t *testing.T) {
	spy := &spySyncService{}
	monitor := netmon.NewMonitor(logger.Nop())
	job := NewClientSyncJob(spy, monitor, logger.Nop())

	job.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	job.Stop()

	callsAfterStop := spy.calls.Load()
	monitor.SetOnlineStatus(false)
	monitor.SetOnlineStatus(true)
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, callsAfterStop, spy.calls.Load(), "no calls after Stop")
}

func TestClientSyncJob_Stop_BeforeStart_NoPanic(t *testing.T) {
	job := NewClientSyncJob(&spySyncService{}, netmon.NewMonitor(logger.Nop()), logger.Nop())

	assert.NotPanics(t, func() { job.Stop() })
}

func TestClientSyncJob_ContextCancelStopsJob(t *testing.T) {
	spy := &spySyncService{}
	job := NewClientSyncJob(spy, netmon.NewMonitor(logger.Nop()), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	job.Start(ctx, 10*time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		job.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancel")
	}
}

func TestClientSyncJob_SkippedRunsKeepJobAlive(t *testing.T) {
	spy := &spySyncService{err: ErrOffline}
	job := NewClientSyncJob(spy, netmon.NewMonitor(logger.Nop()), logger.Nop())

	job.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(45 * time.Millisecond)
	job.Stop()

	assert.GreaterOrEqual(t, spy.calls.Load(), int64(2))
}

func TestClientSyncJob_RestartReplacesRunningLoop(t *testing.T) {
	spy := &spySyncService{}
	job := NewClientSyncJob(spy, netmon.NewMonitor(logger.Nop()), logger.Nop())

	job.Start(context.Background(), time.Hour)
	job.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(35 * time.Millisecond)
	job.Stop()

	assert.GreaterOrEqual(t, spy.calls.Load(), int64(2))
}
