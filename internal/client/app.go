// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MKhiriev/go-checkin/internal/adapter"
	"github.com/MKhiriev/go-checkin/internal/cache"
	"github.com/MKhiriev/go-checkin/internal/config"
	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/metrics"
	"github.com/MKhiriev/go-checkin/internal/netmon"
	"github.com/MKhiriev/go-checkin/internal/queue"
	"github.com/MKhiriev/go-checkin/internal/service"
	"github.com/MKhiriev/go-checkin/internal/store"
	"github.com/MKhiriev/go-checkin/internal/tui"
	"github.com/MKhiriev/go-checkin/internal/utils"
	"github.com/MKhiriev/go-checkin/internal/workers"
	"github.com/MKhiriev/go-checkin/models"
)

var _ Client = (*App)(nil)

// TicketsCollection is the cache collection holding event tickets.
const TicketsCollection = "tickets"

// App owns every long-lived component of the client.
type App struct {
	ctx context.Context
	cfg *config.StructuredConfig

	storages *store.ClientStorages
	queue    *queue.Queue
	tickets  *cache.Store[models.Ticket]
	monitor  *netmon.Monitor
	services *service.ClientServices
	workers  *workers.Workers
	tui      *tui.TUI

	logger *logger.Logger
}

// NewApp builds the client from cfg. The returned App must be closed.
func NewApp(ctx context.Context, cfg *config.StructuredConfig, build models.AppBuildInfo, log *logger.Logger) (*App, error) {
	storages, err := store.NewClientStorages(ctx, cfg.Storage, log.Component("store"))
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	app := &App{ctx: ctx, cfg: cfg, storages: storages, logger: log}
	if err = app.wire(build); err != nil {
		_ = storages.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(build models.AppBuildInfo) error {
	cfg, log := a.cfg, a.logger
	kv := a.storages.KeyValueStore

	a.queue = queue.New(kv, queue.Config{
		MaxSize:     cfg.Queue.MaxSize,
		DedupWindow: cfg.Queue.DedupWindow,
		MaxAge:      cfg.Queue.MaxAge,
		MaxRetries:  cfg.Sync.MaxRetries,
	}, log.Component("queue"))

	a.tickets = cache.New(kv, cache.Config{
		Collection: TicketsCollection,
		ChunkSize:  cfg.Cache.ChunkSize,
		Duration:   cfg.Cache.Duration,
		Compress:   cfg.Cache.Compress,
	}, models.TicketKey, models.TicketStatus, log.Component("cache"))

	a.monitor = netmon.NewMonitor(log.Component("netmon"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	collector, err := metrics.New(registry, metrics.Sources{
		QueueSize:  func() int { return a.queue.Size(a.ctx) },
		CacheBytes: func() int64 { return a.tickets.SizeEstimate(a.ctx, cfg.App.EventUUID) },
	})
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}
	collector.SetOnline(a.monitor.IsConnected())
	a.monitor.AddListener(collector.SetOnline)

	serverAdapter, err := adapter.NewHTTPServerAdapter(cfg.Adapter, cfg.App, a.monitor, log.Component("adapter"))
	if err != nil {
		return fmt.Errorf("create server adapter: %w", err)
	}

	a.services = service.NewClientServices(
		a.storages, serverAdapter, a.queue, a.tickets, a.monitor, cfg.Sync, log,
		service.WithSyncRecorder(collector),
	)

	a.workers = workers.NewWorkers(log.Component("workers")).
		Add("sync_job", workers.SyncJob(a.services.SyncJob, cfg.Sync.Interval))

	if cfg.Sync.ProbeInterval > 0 {
		baseURL, err := adapter.NormalizeBaseURL(cfg.Adapter.HTTPAddress)
		if err != nil {
			return fmt.Errorf("probe address: %w", err)
		}
		prober := netmon.NewHTTPProber(utils.NewHTTPClient(baseURL, cfg.Adapter.RequestTimeout).Client, cfg.Sync.ProbePath)
		a.workers.Add("probe", netmon.NewProbeWorker(a.monitor, prober, cfg.Sync.ProbeInterval, log.Component("probe")))
	}

	if cfg.Metrics.Address != "" {
		router := metrics.NewRouter(registry, a.health, build, log.Component("metrics"))
		a.workers.Add("metrics", metrics.NewServer(cfg.Metrics.Address, router, log.Component("metrics")))
	}

	a.tui, err = tui.New(tui.Deps{
		Services:  a.services,
		Monitor:   a.monitor,
		Queue:     a.queue,
		EventUUID: cfg.App.EventUUID,
		Build:     build,
	}, log.Component("tui"))
	if err != nil {
		return fmt.Errorf("create ui: %w", err)
	}

	return nil
}

func (a *App) health(ctx context.Context) metrics.Health {
	h := metrics.Health{
		Online:    a.monitor.IsConnected(),
		Syncing:   a.services.SyncService.IsSyncing(),
		QueueSize: a.queue.Size(ctx),
	}
	if meta, ok := a.tickets.Metadata(ctx, a.cfg.App.EventUUID); ok {
		h.Tickets = meta.TotalCount
		h.CachedAt = &meta.Timestamp
	}
	return h
}

// Run implements [Client]. It authenticates, starts the background
// workers and blocks in the console until the staff member quits.
func (a *App) Run() error {
	ctx := a.ctx

	if dropped := a.queue.Cleanup(ctx); dropped > 0 {
		a.logger.Warn().Str("func", "App.Run").Int("dropped", dropped).Msg("expired queued actions dropped")
	}

	for {
		if err := a.authenticate(ctx); err != nil {
			return err
		}

		a.warmUp(ctx)

		a.workers.Start(ctx)
		logout, err := a.tui.Console(ctx)
		a.workers.Stop()

		if err != nil {
			return fmt.Errorf("console: %w", err)
		}
		if !logout {
			return nil
		}
	}
}

// authenticate restores the stored session, falls back to the configured
// credentials and finally to the login screen.
func (a *App) authenticate(ctx context.Context) error {
	token, err := a.services.AuthService.RestoreSession(ctx)
	if err == nil {
		a.logger.Info().Str("func", "App.authenticate").Int64("staff_id", token.StaffID).Msg("session restored")
		return nil
	}
	if !errors.Is(err, service.ErrLocalSessionNotFound) &&
		!errors.Is(err, service.ErrTokenIsExpired) &&
		!errors.Is(err, service.ErrTokenIsExpiredOrInvalid) {
		return fmt.Errorf("restore session: %w", err)
	}

	if a.cfg.App.Login != "" && a.cfg.App.Password != "" {
		_, err = a.services.AuthService.Login(ctx, models.Credentials{Login: a.cfg.App.Login, Password: a.cfg.App.Password})
		if err == nil {
			return nil
		}
		a.logger.Warn().Err(err).Str("func", "App.authenticate").Msg("configured credentials rejected")
	}

	if _, err = a.tui.LoginFlow(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// warmUp downloads the event's tickets and drains the queue once. Both are
// best effort: the console works from the cache while offline.
func (a *App) warmUp(ctx context.Context) {
	event := a.cfg.App.EventUUID

	if _, err := a.services.TicketService.Tickets(ctx, event, cache.LoadOptions[models.Ticket]{Limit: 1}); err != nil {
		a.logger.Warn().Err(err).Str("func", "App.warmUp").Str("event", event).Msg("tickets unavailable")
	}

	if _, err := a.services.SyncService.Sync(ctx, nil); err != nil && !errors.Is(err, service.ErrOffline) {
		a.logger.Warn().Err(err).Str("func", "App.warmUp").Msg("initial sync failed")
	}
}

// Close stops the workers and releases the storage.
func (a *App) Close() error {
	a.workers.Stop()
	return a.storages.Close()
}
