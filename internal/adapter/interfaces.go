// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the transport layer for the check-in server API.
//
// [ServerAdapter] decouples the services from the protocol. The package ships
// an HTTP/REST implementation on resty ([NewHTTPServerAdapter]) whose request
// hooks report every call outcome to a [StatusReporter], which is how the
// network monitor learns about connectivity without probing.
//
// Non-2xx responses are returned as [*APIError] values that match the
// sentinels in errors.go with [errors.Is] (e.g. [ErrConflict] for 409).
package adapter

import (
	"context"

	"github.com/MKhiriev/go-checkin/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_adapter_mock.go -package=mock

// ServerAdapter defines communication with the check-in server.
type ServerAdapter interface {
	// SetToken stores the bearer token attached to authenticated requests.
	SetToken(token string)

	// Token returns the stored bearer token, or "" before login.
	Token() string

	// Login authenticates a staff member. On success the bearer token from
	// the Authorization response header is stored via SetToken and returned
	// with its parsed claims.
	Login(ctx context.Context, creds models.Credentials) (models.Token, error)

	// ListTickets fetches one page of an event's tickets. Pages start at 1.
	ListTickets(ctx context.Context, eventUUID string, page, perPage int) (models.TicketPage, error)

	// ScanTicket records a gate scan and returns the server's ticket state.
	ScanTicket(ctx context.Context, p models.ScanTicketPayload) (models.RemoteResult, error)

	// UpdateNote replaces a ticket's staff note.
	UpdateNote(ctx context.Context, p models.UpdateNotePayload) (models.RemoteResult, error)

	// ManualCheckin checks a ticket in without a scan.
	ManualCheckin(ctx context.Context, p models.ManualCheckinPayload) (models.RemoteResult, error)
}

// StatusReporter receives the connectivity outcome of every request.
// [*netmon.Monitor] implements it.
type StatusReporter interface {
	SetOnlineStatus(isOnline bool)
}
