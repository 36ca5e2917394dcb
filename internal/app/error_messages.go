// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains the message strings the check-in server writes into
// error response bodies. The client matches them to turn a rejected request
// into a specific service error.
package app

const (
	// MsgInvalidDataProvided is returned when the request body cannot be
	// decoded or fails basic validation.
	MsgInvalidDataProvided = "invalid data provided"

	// MsgInvalidLoginPassword is returned when the staff login/password
	// combination is wrong.
	MsgInvalidLoginPassword = "invalid login/password"

	// MsgTokenIsExpired is returned when the bearer token has expired.
	MsgTokenIsExpired = "token is expired"

	// MsgTokenIsExpiredOrInvalid is returned when the bearer token is
	// expired or cannot be verified.
	MsgTokenIsExpiredOrInvalid = "token is expired or invalid"

	// MsgNoAccessToEvent is returned when the staff member is not assigned
	// to the event.
	MsgNoAccessToEvent = "no access to event"

	// MsgTicketNotFound is returned when the event has no ticket with the
	// given code.
	MsgTicketNotFound = "ticket not found"

	// MsgEventNotFound is returned for an unknown event uuid.
	MsgEventNotFound = "event not found"

	// MsgTicketAlreadyScanned is returned when a scan or manual check-in
	// targets a ticket that is already checked in.
	MsgTicketAlreadyScanned = "ticket already scanned"

	// MsgTicketCanceled is returned for a ticket whose order was canceled.
	MsgTicketCanceled = "ticket canceled"

	// MsgInternalServerError is returned for unexpected server failures.
	MsgInternalServerError = "internal server error"
)
