// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/netmon"
)

type clientSyncJob struct {
	syncService ClientSyncService
	monitor     *netmon.Monitor
	logger      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClientSyncJob creates a clientSyncJob that drains the queue through
// syncService. The job is idle until Start is called.
func NewClientSyncJob(syncService ClientSyncService, monitor *netmon.Monitor, log *logger.Logger) ClientSyncJob {
	return &clientSyncJob{syncService: syncService, monitor: monitor, logger: log}
}

// Start implements ClientSyncJob. The goroutine exits when ctx is cancelled
// or Stop is called.
func (j *clientSyncJob) Start(ctx context.Context, interval time.Duration) {
	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	// one pending trigger is enough: a run drains everything queued so far
	trigger := make(chan struct{}, 1)
	unsubscribe := j.monitor.AddListener(func(isOnline bool) {
		if !isOnline {
			return
		}
		select {
		case trigger <- struct{}{}:
		default:
		}
	})

	go func() {
		defer j.wg.Done()
		defer unsubscribe()

		var tick <-chan time.Time
		if interval > 0 {
			t := time.NewTicker(interval)
			defer t.Stop()
			tick = t.C
		}

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-trigger:
				j.runSync(jobCtx, "reconnected")
			case <-tick:
				j.runSync(jobCtx, "interval")
			}
		}
	}()
}

func (j *clientSyncJob) runSync(ctx context.Context, reason string) {
	_, err := j.syncService.Sync(ctx, nil)
	switch {
	case err == nil:
	case errors.Is(err, ErrOffline), errors.Is(err, ErrSyncInProgress):
		j.logger.Debug().Err(err).Str("func", "clientSyncJob.runSync").Str("reason", reason).Msg("sync skipped")
	default:
		j.logger.Err(err).Str("func", "clientSyncJob.runSync").Str("reason", reason).Msg("sync failed")
	}
}

// Stop implements ClientSyncJob. It cancels the background goroutine's
// context and blocks until the goroutine has fully exited. Safe to call when
// the job is not running.
func (j *clientSyncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
