// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"encoding/json"

	"github.com/MKhiriev/go-checkin/models"
)

// ticketChange is the local effect of an action on one ticket. apply sets
// every field the action owns, zero values included.
type ticketChange struct {
	ref   models.EntityRef
	apply func(t *models.Ticket)
}

// ticket returns the change applied to a bare ticket, used when the ticket
// is not cached.
func (c ticketChange) ticket() models.Ticket {
	t := models.Ticket{Code: c.ref.Code, EventUUID: c.ref.EventUUID}
	c.apply(&t)
	return t
}

// optimisticChange returns the change a queued action will make once the
// server accepts it.
func optimisticChange(item models.QueueItem) (ticketChange, bool) {
	switch item.Type {
	case models.ActionScanTicket:
		var p models.ScanTicketPayload
		if json.Unmarshal(item.Payload, &p) != nil {
			return ticketChange{}, false
		}
		return scanChange(p), true

	case models.ActionUpdateNote:
		var p models.UpdateNotePayload
		if json.Unmarshal(item.Payload, &p) != nil {
			return ticketChange{}, false
		}
		return noteChange(p), true

	case models.ActionManualCheckin:
		var p models.ManualCheckinPayload
		if json.Unmarshal(item.Payload, &p) != nil {
			return ticketChange{}, false
		}
		return manualCheckinChange(p), true
	}
	return ticketChange{}, false
}

func scanChange(p models.ScanTicketPayload) ticketChange {
	scannedAt := p.ScannedAt
	return ticketChange{
		ref: models.EntityRef{Code: p.Code, EventUUID: p.EventUUID},
		apply: func(t *models.Ticket) {
			t.CheckinStatus = models.CheckinStatusScanned
			t.ScannedAt = &scannedAt
		},
	}
}

func noteChange(p models.UpdateNotePayload) ticketChange {
	return ticketChange{
		ref: models.EntityRef{Code: p.Code, EventUUID: p.EventUUID},
		apply: func(t *models.Ticket) {
			t.Note = p.Note
		},
	}
}

func manualCheckinChange(p models.ManualCheckinPayload) ticketChange {
	checkedInAt := p.CheckedInAt
	return ticketChange{
		ref: models.EntityRef{Code: p.Code, EventUUID: p.EventUUID},
		apply: func(t *models.Ticket) {
			t.CheckinStatus = models.CheckinStatusScanned
			t.ManualCheckin = true
			t.ScannedAt = &checkedInAt
		},
	}
}

// serverTicket fills the identity fields the server may omit from a
// returned ticket.
func serverTicket(ref models.EntityRef, t models.Ticket) models.Ticket {
	if t.Code == "" {
		t.Code = ref.Code
	}
	if t.EventUUID == "" {
		t.EventUUID = ref.EventUUID
	}
	return t
}
