// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package queue

import "errors"

var (
	// ErrQueueFull is returned by [Queue.Enqueue] when the queue is at
	// capacity and cleanup could not free a slot. The caller must surface it.
	ErrQueueFull = errors.New("action queue is full")

	// ErrUnknownActionType is returned for an action type with no handler.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrInvalidPayload is returned when a payload cannot be encoded or
	// does not carry a ticket reference.
	ErrInvalidPayload = errors.New("invalid action payload")
)
