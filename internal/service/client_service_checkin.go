// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MKhiriev/go-checkin/internal/adapter"
	"github.com/MKhiriev/go-checkin/internal/cache"
	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/netmon"
	"github.com/MKhiriev/go-checkin/internal/queue"
	"github.com/MKhiriev/go-checkin/models"
)

type clientCheckinService struct {
	adapter adapter.ServerAdapter
	queue   *queue.Queue
	monitor *netmon.Monitor
	tickets *cache.Store[models.Ticket]
	now     func() time.Time
	logger  *logger.Logger
}

// NewClientCheckinService creates the check-in service.
func NewClientCheckinService(
	serverAdapter adapter.ServerAdapter,
	actionQueue *queue.Queue,
	monitor *netmon.Monitor,
	tickets *cache.Store[models.Ticket],
	log *logger.Logger,
) ClientCheckinService {
	return &clientCheckinService{
		adapter: serverAdapter,
		queue:   actionQueue,
		monitor: monitor,
		tickets: tickets,
		now:     time.Now,
		logger:  log,
	}
}

// ScanTicket implements [ClientCheckinService].
func (s *clientCheckinService) ScanTicket(ctx context.Context, eventUUID, code string) (CheckinOutcome, error) {
	if err := validateTicketRef(eventUUID, code); err != nil {
		return CheckinOutcome{}, err
	}

	p := models.ScanTicketPayload{Code: code, EventUUID: eventUUID, ScannedAt: s.now().UTC()}
	return s.mutate(ctx, models.ActionScanTicket, p, scanChange(p), func(ctx context.Context) (models.RemoteResult, error) {
		return s.adapter.ScanTicket(ctx, p)
	})
}

// UpdateNote implements [ClientCheckinService].
func (s *clientCheckinService) UpdateNote(ctx context.Context, eventUUID, code, note string) (CheckinOutcome, error) {
	if err := validateTicketRef(eventUUID, code); err != nil {
		return CheckinOutcome{}, err
	}

	p := models.UpdateNotePayload{Code: code, EventUUID: eventUUID, Note: note}
	return s.mutate(ctx, models.ActionUpdateNote, p, noteChange(p), func(ctx context.Context) (models.RemoteResult, error) {
		return s.adapter.UpdateNote(ctx, p)
	})
}

// ManualCheckin implements [ClientCheckinService].
func (s *clientCheckinService) ManualCheckin(ctx context.Context, eventUUID, code, reason string) (CheckinOutcome, error) {
	if err := validateTicketRef(eventUUID, code); err != nil {
		return CheckinOutcome{}, err
	}

	p := models.ManualCheckinPayload{Code: code, EventUUID: eventUUID, Reason: reason, CheckedInAt: s.now().UTC()}
	return s.mutate(ctx, models.ActionManualCheckin, p, manualCheckinChange(p), func(ctx context.Context) (models.RemoteResult, error) {
		return s.adapter.ManualCheckin(ctx, p)
	})
}

func validateTicketRef(eventUUID, code string) error {
	if strings.TrimSpace(eventUUID) == "" || strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: event and ticket code are required", ErrInvalidDataProvided)
	}
	return nil
}

// mutate tries call online and falls back to the queue on connectivity
// failure. change is the local effect of the mutation.
func (s *clientCheckinService) mutate(
	ctx context.Context,
	actionType models.ActionType,
	payload any,
	change ticketChange,
	call func(ctx context.Context) (models.RemoteResult, error),
) (CheckinOutcome, error) {
	if s.monitor.IsConnected() {
		res, err := call(ctx)
		if err == nil {
			if res.Ticket != nil {
				return CheckinOutcome{Ticket: s.storeServerTicket(ctx, change.ref, *res.Ticket)}, nil
			}
			return CheckinOutcome{Ticket: s.applyChange(ctx, change)}, nil
		}

		if !netmon.IsNetworkError(err) {
			s.logger.Warn().
				Err(err).
				Str("func", "clientCheckinService.mutate").
				Str("type", actionType.String()).
				Str("ticket", change.ref.Code).
				Msg("server rejected action")
			return CheckinOutcome{}, mapAdapterError(err)
		}

		s.monitor.SetOnlineStatus(false)
		s.logger.Info().
			Err(err).
			Str("func", "clientCheckinService.mutate").
			Str("type", actionType.String()).
			Msg("server unreachable, queueing action")
	}

	id, err := s.queue.Enqueue(ctx, actionType, payload)
	if err != nil {
		s.logger.Err(err).Str("func", "clientCheckinService.mutate").Str("type", actionType.String()).Msg("failed to queue action")
		return CheckinOutcome{}, fmt.Errorf("queue %s: %w", actionType, err)
	}

	return CheckinOutcome{Queued: true, QueueID: id, Ticket: s.applyChange(ctx, change)}, nil
}

// applyChange applies change to the cached ticket and returns the result,
// or the change applied to a bare ticket when the ticket is not cached.
func (s *clientCheckinService) applyChange(ctx context.Context, change ticketChange) models.Ticket {
	if s.tickets == nil {
		return change.ticket()
	}

	err := s.tickets.Update(ctx, change.ref.EventUUID, change.ref.Code, change.apply)
	if err != nil {
		if !errors.Is(err, cache.ErrNotCached) && !errors.Is(err, cache.ErrEntityNotFound) {
			s.logger.Warn().Err(err).Str("func", "clientCheckinService.applyChange").Str("ticket", change.ref.Code).Msg("failed to update cached ticket")
		}
		return change.ticket()
	}

	if updated, ok := s.tickets.Lookup(ctx, change.ref.EventUUID, change.ref.Code); ok {
		return updated
	}
	return change.ticket()
}

// storeServerTicket replaces the cached ticket with the server's state.
func (s *clientCheckinService) storeServerTicket(ctx context.Context, ref models.EntityRef, t models.Ticket) models.Ticket {
	t = serverTicket(ref, t)
	if s.tickets == nil {
		return t
	}

	err := s.tickets.Put(ctx, ref.EventUUID, ref.Code, t)
	if err != nil && !errors.Is(err, cache.ErrNotCached) && !errors.Is(err, cache.ErrEntityNotFound) {
		s.logger.Warn().Err(err).Str("func", "clientCheckinService.storeServerTicket").Str("ticket", ref.Code).Msg("failed to update cached ticket")
	}
	return t
}
