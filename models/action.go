// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// ActionType enumerates the mutation kinds that can be deferred while the
// device is offline. Each type maps to exactly one remote handler.
type ActionType string

const (
	// ActionScanTicket records a ticket scan at the gate.
	ActionScanTicket ActionType = "scanTicket"

	// ActionUpdateNote replaces the staff note attached to a ticket.
	ActionUpdateNote ActionType = "updateNote"

	// ActionManualCheckin checks a ticket in by hand (no scan), for example
	// when the barcode is unreadable.
	ActionManualCheckin ActionType = "manualCheckin"
)

// ActionTypes lists every known [ActionType] in declaration order.
var ActionTypes = []ActionType{ActionScanTicket, ActionUpdateNote, ActionManualCheckin}

// Valid reports whether t is one of the known action types.
func (t ActionType) Valid() bool {
	switch t {
	case ActionScanTicket, ActionUpdateNote, ActionManualCheckin:
		return true
	}
	return false
}

func (t ActionType) String() string {
	return string(t)
}

// QueueItem is a single pending mutation awaiting submission to the server.
//
// Only the action type and its payload are stored; the handler that replays
// the action is resolved at sync time from a static registry.
type QueueItem struct {
	// ID is globally unique: <type>_<unix millis>_<random suffix>.
	ID string `json:"id"`

	// Type selects the remote handler used to replay the mutation.
	Type ActionType `json:"type"`

	// Payload is the type-specific data needed to replay the mutation
	// (one of the *Payload types below, JSON encoded).
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is used for the dedup window and for age-based cleanup.
	CreatedAt time.Time `json:"created_at"`

	// RetryCount is the number of failed replay attempts so far.
	RetryCount int `json:"retry_count"`
}

// Exhausted reports whether the item has used all maxRetries attempts.
// Sync drops an exhausted item instead of replaying it, and queue cleanup
// evicts it once it is also older than the maximum age.
func (i QueueItem) Exhausted(maxRetries int) bool {
	return i.RetryCount >= maxRetries
}

// ScanTicketPayload is the payload of [ActionScanTicket].
type ScanTicketPayload struct {
	Code      string    `json:"code"`
	EventUUID string    `json:"event_uuid"`
	ScannedAt time.Time `json:"scanned_at"`
}

// UpdateNotePayload is the payload of [ActionUpdateNote].
type UpdateNotePayload struct {
	Code      string `json:"code"`
	EventUUID string `json:"event_uuid"`
	Note      string `json:"note"`
}

// ManualCheckinPayload is the payload of [ActionManualCheckin].
type ManualCheckinPayload struct {
	Code        string    `json:"code"`
	EventUUID   string    `json:"event_uuid"`
	Reason      string    `json:"reason,omitempty"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// EntityRef identifies the ticket a queued action operates on. It is common
// to every payload type, so it is used both for per-entity ordering and for
// patching the local cache.
type EntityRef struct {
	Code      string `json:"code"`
	EventUUID string `json:"event_uuid"`
}

// Key returns "<event>/<code>", unique across events.
func (r EntityRef) Key() string {
	return r.EventUUID + "/" + r.Code
}

// Entity decodes the ticket reference carried by the item's payload.
// All payload types share the code and event_uuid fields.
func (i QueueItem) Entity() (EntityRef, error) {
	var ref EntityRef
	if err := json.Unmarshal(i.Payload, &ref); err != nil {
		return EntityRef{}, err
	}
	return ref, nil
}
