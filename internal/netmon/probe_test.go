// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package netmon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-checkin/internal/logger"
)

type fakeProber struct {
	calls atomic.Int64
	down  atomic.Bool
}

func (p *fakeProber) Probe(context.Context) error {
	p.calls.Add(1)
	if p.down.Load() {
		return errors.New("down")
	}
	return nil
}

// ── HTTPProber ───────────────────────────────────────────────────────────────

func TestHTTPProber(t *testing.T) {
	var status atomic.Int64
	status.Store(http.StatusNoContent)
	r := chi.NewRouter()
	r.Get("/api/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(int(status.Load())) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	p := NewHTTPProber(resty.New().SetBaseURL(srv.URL), "/api/ping")

	require.NoError(t, p.Probe(context.Background()))

	status.Store(http.StatusUnauthorized)
	assert.NoError(t, p.Probe(context.Background()), "any non-5xx answer means reachable")

	status.Store(http.StatusBadGateway)
	assert.Error(t, p.Probe(context.Background()))
}

func TestHTTPProber_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	p := NewHTTPProber(resty.New().SetBaseURL(srv.URL), "/api/ping")
	err := p.Probe(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

// ── ProbeWorker ──────────────────────────────────────────────────────────────

func TestProbeWorker_RestoresOnline(t *testing.T) {
	m := NewMonitor(logger.Nop(), WithInitialState(false))
	p := &fakeProber{}
	p.down.Store(true)

	w := NewProbeWorker(m, p, 5*time.Millisecond, logger.Nop())
	w.Start(context.Background())
	defer w.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.False(t, m.IsConnected())

	p.down.Store(false)
	assert.Eventually(t, m.IsConnected, time.Second, 5*time.Millisecond)
}

func TestProbeWorker_SkipsWhileOnline(t *testing.T) {
	m := NewMonitor(logger.Nop())
	p := &fakeProber{}

	w := NewProbeWorker(m, p, 5*time.Millisecond, logger.Nop())
	w.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	w.Stop()

	assert.Zero(t, p.calls.Load())
}

func TestProbeWorker_ZeroIntervalIdle(t *testing.T) {
	m := NewMonitor(logger.Nop(), WithInitialState(false))
	p := &fakeProber{}

	w := NewProbeWorker(m, p, 0, logger.Nop())
	w.Start(context.Background())
	assert.NotPanics(t, w.Stop)
	assert.Zero(t, p.calls.Load())
}
