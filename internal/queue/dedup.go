// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package queue

import (
	"time"

	"github.com/MKhiriev/go-checkin/models"
)

// dedupRule describes how two queued actions of one type are compared.
type dedupRule struct {
	// naturalKey returns the identity of the action's target.
	naturalKey func(ref models.EntityRef) string
	// refreshPayload replaces the payload of the live duplicate with the
	// newer one, so the latest value is what gets replayed.
	refreshPayload bool
}

var dedupRules = map[models.ActionType]dedupRule{
	// the scanned code, scoped by event
	models.ActionScanTicket: {naturalKey: models.EntityRef.Key},
	// (code, event); the newest note wins
	models.ActionUpdateNote: {naturalKey: models.EntityRef.Key, refreshPayload: true},
	// (code, event)
	models.ActionManualCheckin: {naturalKey: models.EntityRef.Key},
}

// findDuplicate returns the index of a live item of the same type and
// natural key created within window before now, or -1.
func findDuplicate(items []models.QueueItem, actionType models.ActionType, key string, window time.Duration, now time.Time) int {
	rule := dedupRules[actionType]

	for i, item := range items {
		if item.Type != actionType {
			continue
		}
		if now.Sub(item.CreatedAt) >= window {
			continue
		}

		ref, err := item.Entity()
		if err != nil {
			continue
		}
		if rule.naturalKey(ref) == key {
			return i
		}
	}

	return -1
}
