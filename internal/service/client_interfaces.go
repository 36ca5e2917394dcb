// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package service implements the client-side use cases of the check-in
// device: staff login, ticket browsing from the local cache, check-in
// mutations that fall back to the offline queue, and the sync run that
// drains that queue once the server is reachable again.
package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-checkin/internal/cache"
	"github.com/MKhiriev/go-checkin/models"
)

// SyncListener receives the aggregate result of every finished sync run.
type SyncListener func(models.SyncResult)

// ProgressFunc receives progress after every dispatched item.
type ProgressFunc func(models.SyncProgress)

// ClientAuthService defines staff authentication against the server.
type ClientAuthService interface {
	// Login authenticates with the server, stores the bearer token in the
	// adapter and persists it locally for the next start.
	Login(ctx context.Context, creds models.Credentials) (models.Token, error)

	// RestoreSession loads a previously persisted token. It returns
	// [ErrLocalSessionNotFound] when there is none and [ErrTokenIsExpired]
	// when it can no longer be used.
	RestoreSession(ctx context.Context) (models.Token, error)

	// Logout forgets the persisted token.
	Logout(ctx context.Context) error
}

// ClientCheckinService defines the ticket mutations performed at the gate.
//
// Each mutation is attempted online first. When the device is offline, or
// the attempt fails for lack of connectivity, the mutation is queued, the
// cached ticket is updated optimistically and the outcome reports Queued.
// A server rejection is returned to the caller and nothing is queued.
type ClientCheckinService interface {
	ScanTicket(ctx context.Context, eventUUID, code string) (CheckinOutcome, error)
	UpdateNote(ctx context.Context, eventUUID, code, note string) (CheckinOutcome, error)
	ManualCheckin(ctx context.Context, eventUUID, code, reason string) (CheckinOutcome, error)
}

// CheckinOutcome is the result of a check-in mutation.
type CheckinOutcome struct {
	// Queued is true when the mutation was deferred to the next sync.
	Queued bool
	// QueueID is the id of the queued action when Queued is set.
	QueueID string
	// Ticket is the server's ticket state, or the optimistic local state
	// when Queued is set.
	Ticket models.Ticket
}

// ClientTicketService defines read access to an event's tickets.
type ClientTicketService interface {
	// Tickets returns a window of the event's tickets. A fresh cache is
	// served directly; a stale or missing one is refetched when online;
	// offline a stale cache is still served.
	Tickets(ctx context.Context, eventUUID string, opts cache.LoadOptions[models.Ticket]) ([]models.Ticket, error)

	// Find returns one ticket from the cache.
	Find(ctx context.Context, eventUUID, code string) (models.Ticket, error)

	// Stats summarizes the cached tickets of an event.
	Stats(ctx context.Context, eventUUID string) (TicketStats, error)

	// Refresh refetches every page of the event's tickets and replaces the
	// cached copy. It returns the number of tickets cached.
	Refresh(ctx context.Context, eventUUID string) (int, error)
}

// TicketStats summarizes an event's cached tickets.
type TicketStats struct {
	Total     int
	Scanned   int
	Unscanned int
	CachedAt  time.Time
	Fresh     bool
}

// ClientSyncService defines the queue-draining sync run.
type ClientSyncService interface {
	// Sync drains the action queue against the server. It returns
	// [ErrOffline] or [ErrSyncInProgress] with an empty result when it
	// cannot start. onProgress may be nil.
	Sync(ctx context.Context, onProgress ProgressFunc) (models.SyncResult, error)

	// IsSyncing reports whether a run is active.
	IsSyncing() bool

	// AddListener registers l for the result of every run and returns a
	// function that removes it.
	AddListener(l SyncListener) (unsubscribe func())
}

// ClientSyncJob defines the background worker that triggers sync runs.
type ClientSyncJob interface {
	// Start launches the background goroutine. It syncs whenever the
	// network monitor reports an offline to online transition and, when
	// interval is positive, on every tick. Any previous run is stopped
	// first.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the background goroutine to exit and blocks until it
	// has fully terminated.
	Stop()
}
