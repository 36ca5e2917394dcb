// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package netmon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-checkin/internal/logger"
)

// Prober checks reachability of the remote API.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPProber issues a GET to a lightweight endpoint. Any response below 500
// proves the server is reachable; a 5xx usually comes from a proxy in front
// of a backend that is still down.
type HTTPProber struct {
	client *resty.Client
	path   string
}

// NewHTTPProber returns a prober for path on client's base URL.
func NewHTTPProber(client *resty.Client, path string) *HTTPProber {
	return &HTTPProber{client: client, path: path}
}

// Probe implements [Prober].
func (p *HTTPProber) Probe(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get(p.path)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.path, err)
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("probe %s: server answered %d", p.path, resp.StatusCode())
	}
	return nil
}

// ProbeWorker probes on an interval while the monitor reports offline and
// feeds a success back as an online transition.
type ProbeWorker struct {
	monitor  *Monitor
	prober   Prober
	interval time.Duration
	logger   *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProbeWorker creates an idle worker. Start launches it.
func NewProbeWorker(monitor *Monitor, prober Prober, interval time.Duration, log *logger.Logger) *ProbeWorker {
	return &ProbeWorker{
		monitor:  monitor,
		prober:   prober,
		interval: interval,
		logger:   log,
	}
}

// Start stops any previous run and launches the probing goroutine. A
// non-positive interval leaves the worker idle.
func (w *ProbeWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		return
	}

	w.Stop()

	w.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		t := time.NewTicker(w.interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				w.probeOnce(jobCtx)
			}
		}
	}()
}

// probeOnce probes only while offline; online state is maintained by real
// traffic.
func (w *ProbeWorker) probeOnce(ctx context.Context) {
	if w.monitor.IsConnected() {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	if err := w.prober.Probe(probeCtx); err != nil {
		w.logger.Debug().Err(err).Str("func", "ProbeWorker.probeOnce").Msg("remote still unreachable")
		return
	}

	w.monitor.SetOnlineStatus(true)
}

// Stop cancels the goroutine and waits for it to exit. Safe to call when the
// worker is not running.
func (w *ProbeWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}
