// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-checkin/internal/netmon"
	"github.com/MKhiriev/go-checkin/internal/queue"
	"github.com/MKhiriev/go-checkin/internal/service"
	"github.com/MKhiriev/go-checkin/models"
)

// humanizeError turns service errors into a short line for the staff.
func humanizeError(err error) string {
	switch {
	case err == nil:
		return ""
	case netmon.IsNetworkError(err):
		return "No network or the server is unavailable"
	case errors.Is(err, service.ErrWrongPassword):
		return "Wrong login or password"
	case errors.Is(err, service.ErrTokenIsExpired), errors.Is(err, service.ErrTokenIsExpiredOrInvalid):
		return "Session expired, log in again"
	case errors.Is(err, service.ErrTicketAlreadyScanned):
		return "Ticket already scanned"
	case errors.Is(err, service.ErrTicketCanceled):
		return "Ticket canceled"
	case errors.Is(err, service.ErrTicketNotFound):
		return "Ticket not found"
	case errors.Is(err, service.ErrEventNotFound):
		return "Event not found"
	case errors.Is(err, service.ErrNoAccessToEvent):
		return "No access to this event"
	case errors.Is(err, service.ErrNoCachedTickets):
		return "Offline and no tickets downloaded yet"
	case errors.Is(err, service.ErrOffline):
		return "Offline, sync postponed"
	case errors.Is(err, service.ErrSyncInProgress):
		return "Sync already running"
	case errors.Is(err, queue.ErrQueueFull):
		return "Offline queue is full, reconnect to sync"
	case errors.Is(err, service.ErrInvalidDataProvided):
		return "Ticket code is required"
	}
	return err.Error()
}

// formatSyncErrors renders the permanent failures of a run, one per line.
func formatSyncErrors(result models.SyncResult) string {
	if len(result.Errors) == 0 {
		return ""
	}

	var b strings.Builder
	for _, e := range result.Errors {
		ref, _ := e.Item.Entity()
		fmt.Fprintf(&b, "%s\t%s\t%s\t%v\n", e.Item.ID, e.Item.Type, ref.Code, e.Err)
	}
	return b.String()
}
