// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"github.com/MKhiriev/go-checkin/internal/service"
	"github.com/MKhiriev/go-checkin/models"
)

// NavigateTo switches the [RootModel] to another page. Payload, when set,
// is delivered to the new page as its first message.
type NavigateTo struct {
	Page    string
	Payload any
}

// LoginResult is produced by the login command.
type LoginResult struct {
	Token models.Token
	Err   error
}

type ticketsLoadedMsg struct {
	items []models.Ticket
	err   error
}

type statsMsg struct {
	stats     service.TicketStats
	queueSize int
	err       error
}

type statsTickMsg struct{}

type connectivityMsg struct {
	online bool
}

type syncProgressMsg struct {
	progress models.SyncProgress
}

type syncDoneMsg struct {
	result models.SyncResult
	err    error
}

type backgroundSyncMsg struct {
	result models.SyncResult
}

type actionDoneMsg struct {
	verb    string
	outcome service.CheckinOutcome
	err     error
}

type copiedMsg struct {
	err error
}

type clearStatusMsg struct{}
