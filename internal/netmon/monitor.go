// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package netmon

import (
	"sync"

	"github.com/MKhiriev/go-checkin/internal/logger"
)

// Listener receives the new connectivity state after a transition.
type Listener func(isOnline bool)

// Monitor holds the last known connectivity state and its subscribers.
type Monitor struct {
	mu        sync.RWMutex
	isOnline  bool
	nextID    uint64
	listeners map[uint64]Listener
	order     []uint64

	logger *logger.Logger
}

// Option configures a [Monitor].
type Option func(*Monitor)

// WithInitialState sets the state reported before the first remote call.
// The default is online so the first call is attempted.
func WithInitialState(isOnline bool) Option {
	return func(m *Monitor) {
		m.isOnline = isOnline
	}
}

// NewMonitor creates a [Monitor].
func NewMonitor(log *logger.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		isOnline:  true,
		listeners: make(map[uint64]Listener),
		logger:    log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsConnected returns the last known state. It performs no I/O.
func (m *Monitor) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isOnline
}

// SetOnlineStatus records the outcome of a remote call. Listeners are called
// synchronously, in registration order and outside the lock, only when the
// state actually changes.
func (m *Monitor) SetOnlineStatus(isOnline bool) {
	m.mu.Lock()
	if m.isOnline == isOnline {
		m.mu.Unlock()
		return
	}
	m.isOnline = isOnline

	listeners := make([]Listener, 0, len(m.order))
	for _, id := range m.order {
		listeners = append(listeners, m.listeners[id])
	}
	m.mu.Unlock()

	m.logger.Info().
		Str("func", "Monitor.SetOnlineStatus").
		Bool("is_online", isOnline).
		Int("listeners", len(listeners)).
		Msg("connectivity changed")

	for _, l := range listeners {
		m.notify(l, isOnline)
	}
}

// notify isolates a panicking subscriber from the others.
func (m *Monitor) notify(l Listener, isOnline bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Str("func", "Monitor.notify").
				Interface("panic", r).
				Msg("connectivity listener panicked")
		}
	}()
	l(isOnline)
}

// AddListener subscribes l to transitions. The returned function removes the
// subscription and is safe to call more than once.
func (m *Monitor) AddListener(l Listener) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.order = append(m.order, id)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if _, ok := m.listeners[id]; !ok {
			return
		}
		delete(m.listeners, id)
		for i, v := range m.order {
			if v == id {
				m.order = append(m.order[:i:i], m.order[i+1:]...)
				break
			}
		}
	}
}
