// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/service"
)

type namedWorker struct {
	name   string
	worker Worker
}

// Workers starts its workers in registration order and stops them in
// reverse order.
type Workers struct {
	mu      sync.Mutex
	workers []namedWorker
	running bool
	logger  *logger.Logger
}

// NewWorkers creates an empty aggregate.
func NewWorkers(log *logger.Logger) *Workers {
	return &Workers{logger: log}
}

// Add registers w under name. Nil workers are ignored, so optional workers
// can be added unconditionally.
func (w *Workers) Add(name string, worker Worker) *Workers {
	if worker == nil {
		return w
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.workers = append(w.workers, namedWorker{name: name, worker: worker})
	return w
}

// Start starts every registered worker. Calling Start on a running
// aggregate does nothing.
func (w *Workers) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true

	for _, nw := range w.workers {
		w.logger.Info().Str("func", "Workers.Start").Str("worker", nw.name).Msg("starting worker")
		nw.worker.Start(ctx)
	}
}

// Stop stops every registered worker, last started first.
func (w *Workers) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false

	for i := len(w.workers) - 1; i >= 0; i-- {
		nw := w.workers[i]
		nw.worker.Stop()
		w.logger.Info().Str("func", "Workers.Stop").Str("worker", nw.name).Msg("worker stopped")
	}
}

type syncJobWorker struct {
	job      service.ClientSyncJob
	interval time.Duration
}

// SyncJob adapts the background sync job to [Worker].
func SyncJob(job service.ClientSyncJob, interval time.Duration) Worker {
	return &syncJobWorker{job: job, interval: interval}
}

func (s *syncJobWorker) Start(ctx context.Context) {
	s.job.Start(ctx, s.interval)
}

func (s *syncJobWorker) Stop() {
	s.job.Stop()
}
