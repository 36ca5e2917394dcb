// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// Check-in statuses reported by the server. They double as the coarse
// partition used by the cache index.
const (
	CheckinStatusScanned   = "SCANNED"
	CheckinStatusUnscanned = "UNSCANNED"
)

// Ticket is a single admission ticket as returned by the ticket listing
// endpoint and cached locally per event.
type Ticket struct {
	// Code is the scannable ticket number, unique within an event.
	Code string `json:"code"`

	// EventUUID is the event the ticket belongs to.
	EventUUID string `json:"event_uuid"`

	// OrderCode groups tickets bought in a single order.
	OrderCode string `json:"order_code,omitempty"`

	HolderName string `json:"holder_name,omitempty"`
	TicketType string `json:"ticket_type,omitempty"`

	// CheckinStatus is either CheckinStatusScanned or CheckinStatusUnscanned.
	CheckinStatus string `json:"checkin_status,omitempty"`

	// Note is a free-form staff note.
	Note string `json:"note,omitempty"`

	// ManualCheckin is set when the ticket was checked in by hand.
	ManualCheckin bool `json:"manual_checkin,omitempty"`

	ScannedAt *time.Time `json:"scanned_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Scanned reports whether the ticket has already been checked in.
func (t Ticket) Scanned() bool {
	return t.CheckinStatus == CheckinStatusScanned
}

// TicketPage is one page of the paginated ticket listing.
type TicketPage struct {
	Tickets []Ticket `json:"tickets"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
	Total   int      `json:"total"`
}

// RemoteResult is the authoritative outcome of a mutation returned by the
// server. Ticket is nil when the endpoint returns no entity.
type RemoteResult struct {
	Ticket *Ticket `json:"ticket,omitempty"`
}

// TicketKey is the natural key of a ticket within its event.
func TicketKey(t Ticket) string {
	return t.Code
}

// TicketStatus returns the index partition of a ticket.
func TicketStatus(t Ticket) string {
	if t.CheckinStatus == "" {
		return CheckinStatusUnscanned
	}
	return t.CheckinStatus
}
