// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import "errors"

var (
	// ErrOffline is returned by Sync when the monitor reports no
	// connectivity. Nothing was dispatched.
	ErrOffline = errors.New("device is offline")

	// ErrSyncInProgress is returned by Sync when another run is active.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrRetriesExhausted wraps the last handler error of an item that was
	// dropped after reaching the retry bound.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrNoHandler is recorded for a queued item whose type has no handler.
	ErrNoHandler = errors.New("no handler for action type")

	ErrInvalidDataProvided     = errors.New("invalid data provided")
	ErrWrongPassword           = errors.New("wrong password")
	ErrTokenIsExpired          = errors.New("token is expired")
	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")
	ErrNoAccessToEvent         = errors.New("no access to event")
	ErrLoginOnServer           = errors.New("login on server failed")
	ErrLocalSessionNotFound    = errors.New("no saved session")

	ErrTicketNotFound       = errors.New("ticket not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrTicketAlreadyScanned = errors.New("ticket already scanned")
	ErrTicketCanceled       = errors.New("ticket canceled")

	// ErrNoCachedTickets is returned when the device is offline and no copy
	// of the event's tickets was ever cached.
	ErrNoCachedTickets = errors.New("tickets are not available offline")
)
