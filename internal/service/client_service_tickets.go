// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-checkin/internal/adapter"
	"github.com/MKhiriev/go-checkin/internal/cache"
	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/netmon"
	"github.com/MKhiriev/go-checkin/internal/queue"
	"github.com/MKhiriev/go-checkin/models"
)

// DefaultPageSize is the page size used to download an event's tickets.
const DefaultPageSize = 500

type clientTicketService struct {
	adapter  adapter.ServerAdapter
	tickets  *cache.Store[models.Ticket]
	queue    *queue.Queue
	monitor  *netmon.Monitor
	pageSize int
	logger   *logger.Logger
}

// NewClientTicketService creates the ticket service. A non-positive
// pageSize selects [DefaultPageSize].
func NewClientTicketService(
	serverAdapter adapter.ServerAdapter,
	tickets *cache.Store[models.Ticket],
	actionQueue *queue.Queue,
	monitor *netmon.Monitor,
	pageSize int,
	log *logger.Logger,
) ClientTicketService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &clientTicketService{
		adapter:  serverAdapter,
		tickets:  tickets,
		queue:    actionQueue,
		monitor:  monitor,
		pageSize: pageSize,
		logger:   log,
	}
}

// Tickets implements [ClientTicketService].
func (s *clientTicketService) Tickets(ctx context.Context, eventUUID string, opts cache.LoadOptions[models.Ticket]) ([]models.Ticket, error) {
	meta, cached := s.tickets.Metadata(ctx, eventUUID)
	if cached && s.tickets.IsFresh(meta.Timestamp) {
		return s.load(ctx, eventUUID, opts)
	}

	if s.monitor.IsConnected() {
		_, err := s.Refresh(ctx, eventUUID)
		switch {
		case err == nil:
			return s.load(ctx, eventUUID, opts)
		case !cached:
			return nil, err
		}

		s.logger.Warn().
			Err(err).
			Str("func", "clientTicketService.Tickets").
			Str("event", eventUUID).
			Time("cached_at", meta.Timestamp).
			Msg("refresh failed, serving stale tickets")
	}

	if !cached {
		return nil, ErrNoCachedTickets
	}
	return s.load(ctx, eventUUID, opts)
}

func (s *clientTicketService) load(ctx context.Context, eventUUID string, opts cache.LoadOptions[models.Ticket]) ([]models.Ticket, error) {
	items, ok := s.tickets.Load(ctx, eventUUID, opts)
	if !ok {
		return nil, ErrNoCachedTickets
	}
	return items, nil
}

// Find implements [ClientTicketService].
func (s *clientTicketService) Find(ctx context.Context, eventUUID, code string) (models.Ticket, error) {
	if _, cached := s.tickets.Metadata(ctx, eventUUID); !cached {
		return models.Ticket{}, ErrNoCachedTickets
	}

	ticket, ok := s.tickets.Lookup(ctx, eventUUID, code)
	if !ok {
		return models.Ticket{}, fmt.Errorf("%w: %s", ErrTicketNotFound, code)
	}
	return ticket, nil
}

// Stats implements [ClientTicketService].
func (s *clientTicketService) Stats(ctx context.Context, eventUUID string) (TicketStats, error) {
	meta, cached := s.tickets.Metadata(ctx, eventUUID)
	if !cached {
		return TicketStats{}, ErrNoCachedTickets
	}

	counts := s.tickets.StatusCounts(ctx, eventUUID)
	return TicketStats{
		Total:     meta.TotalCount,
		Scanned:   counts[models.CheckinStatusScanned],
		Unscanned: counts[models.CheckinStatusUnscanned],
		CachedAt:  meta.Timestamp,
		Fresh:     s.tickets.IsFresh(meta.Timestamp),
	}, nil
}

// Refresh implements [ClientTicketService]. Queued actions of the event are
// re-applied on top of the downloaded state so optimistic updates survive
// until they are synced.
func (s *clientTicketService) Refresh(ctx context.Context, eventUUID string) (int, error) {
	var all []models.Ticket

	for page := 1; ; page++ {
		p, err := s.adapter.ListTickets(ctx, eventUUID, page, s.pageSize)
		if err != nil {
			s.logger.Err(err).Str("func", "clientTicketService.Refresh").Str("event", eventUUID).Int("page", page).Msg("failed to download tickets")
			return 0, fmt.Errorf("download tickets page %d: %w", page, mapAdapterError(err))
		}

		all = append(all, p.Tickets...)
		if len(p.Tickets) == 0 || len(p.Tickets) < s.pageSize || (p.Total > 0 && len(all) >= p.Total) {
			break
		}
	}

	if err := s.tickets.Save(ctx, eventUUID, all); err != nil {
		return 0, fmt.Errorf("cache tickets: %w", err)
	}

	s.reapplyPending(ctx, eventUUID)

	s.logger.Info().Str("func", "clientTicketService.Refresh").Str("event", eventUUID).Int("tickets", len(all)).Msg("tickets refreshed")
	return len(all), nil
}

func (s *clientTicketService) reapplyPending(ctx context.Context, eventUUID string) {
	if s.queue == nil {
		return
	}

	for _, item := range s.queue.DequeueAll(ctx) {
		change, ok := optimisticChange(item)
		if !ok || change.ref.EventUUID != eventUUID {
			continue
		}

		err := s.tickets.Update(ctx, eventUUID, change.ref.Code, change.apply)
		if err != nil && !errors.Is(err, cache.ErrEntityNotFound) {
			s.logger.Warn().Err(err).Str("func", "clientTicketService.reapplyPending").Str("id", item.ID).Msg("failed to re-apply queued action")
		}
	}
}
