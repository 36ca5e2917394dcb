// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-checkin/internal/adapter"
	"github.com/MKhiriev/go-checkin/internal/app"
)

// mapAdapterError translates a server rejection into a service error. The
// original error stays in the chain so callers can still inspect the
// response. Errors without an HTTP status pass through unchanged.
func mapAdapterError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *adapter.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	var mapped error
	switch {
	case errors.Is(err, adapter.ErrBadRequest):
		if apiErr.Body == app.MsgInvalidDataProvided {
			mapped = ErrInvalidDataProvided
		}

	case errors.Is(err, adapter.ErrUnauthorized):
		switch apiErr.Body {
		case app.MsgInvalidLoginPassword:
			mapped = ErrWrongPassword
		case app.MsgTokenIsExpired:
			mapped = ErrTokenIsExpired
		case app.MsgTokenIsExpiredOrInvalid:
			mapped = ErrTokenIsExpiredOrInvalid
		}

	case errors.Is(err, adapter.ErrForbidden):
		mapped = ErrNoAccessToEvent

	case errors.Is(err, adapter.ErrNotFound):
		switch apiErr.Body {
		case app.MsgEventNotFound:
			mapped = ErrEventNotFound
		default:
			mapped = ErrTicketNotFound
		}

	case errors.Is(err, adapter.ErrConflict):
		switch apiErr.Body {
		case app.MsgTicketAlreadyScanned:
			mapped = ErrTicketAlreadyScanned
		case app.MsgTicketCanceled:
			mapped = ErrTicketCanceled
		}
	}

	if mapped == nil {
		return err
	}
	return fmt.Errorf("%w: %w", mapped, err)
}
