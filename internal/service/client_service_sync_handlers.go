// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-checkin/internal/adapter"
	"github.com/MKhiriev/go-checkin/internal/queue"
	"github.com/MKhiriev/go-checkin/models"
)

// ActionHandler replays one queued action against the server.
type ActionHandler func(ctx context.Context, item models.QueueItem) (models.RemoteResult, error)

// HandlerRegistry resolves the handler of a queued action by its type.
type HandlerRegistry map[models.ActionType]ActionHandler

// NewHandlerRegistry maps every action type to the adapter call that
// replays it.
func NewHandlerRegistry(serverAdapter adapter.ServerAdapter) HandlerRegistry {
	return HandlerRegistry{
		models.ActionScanTicket:    payloadHandler(serverAdapter.ScanTicket),
		models.ActionUpdateNote:    payloadHandler(serverAdapter.UpdateNote),
		models.ActionManualCheckin: payloadHandler(serverAdapter.ManualCheckin),
	}
}

// payloadHandler decodes the item payload into P before calling the server.
func payloadHandler[P any](call func(context.Context, P) (models.RemoteResult, error)) ActionHandler {
	return func(ctx context.Context, item models.QueueItem) (models.RemoteResult, error) {
		var payload P
		if err := json.Unmarshal(item.Payload, &payload); err != nil {
			return models.RemoteResult{}, fmt.Errorf("%w: %s: %w", queue.ErrInvalidPayload, item.ID, err)
		}
		return call(ctx, payload)
	}
}
