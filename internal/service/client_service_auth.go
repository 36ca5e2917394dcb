// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MKhiriev/go-checkin/internal/adapter"
	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/store"
	"github.com/MKhiriev/go-checkin/internal/utils"
	"github.com/MKhiriev/go-checkin/models"
)

// SessionKey is the key/value store key holding the last bearer token.
const SessionKey = "@checkin:session"

type clientAuthService struct {
	localStore *store.ClientStorages
	adapter    adapter.ServerAdapter
	now        func() time.Time
	logger     *logger.Logger
}

// NewClientAuthService creates the auth service.
func NewClientAuthService(localStore *store.ClientStorages, serverAdapter adapter.ServerAdapter, log *logger.Logger) ClientAuthService {
	return &clientAuthService{localStore: localStore, adapter: serverAdapter, now: time.Now, logger: log}
}

// Login implements [ClientAuthService]. Failing to persist the token is
// logged only; the session still works until the app exits.
func (a *clientAuthService) Login(ctx context.Context, creds models.Credentials) (models.Token, error) {
	if creds.Login == "" || creds.Password == "" {
		return models.Token{}, fmt.Errorf("%w: login and password are required", ErrInvalidDataProvided)
	}

	token, err := a.adapter.Login(ctx, creds)
	if err != nil {
		return models.Token{}, fmt.Errorf("%w: %w", ErrLoginOnServer, mapAdapterError(err))
	}

	if err = a.localStore.KeyValueStore.SetItem(ctx, SessionKey, token.SignedString); err != nil {
		a.logger.Warn().Err(err).Str("func", "clientAuthService.Login").Msg("failed to persist session")
	}

	a.logger.Info().Str("func", "clientAuthService.Login").Int64("staff_id", token.StaffID).Msg("staff logged in")
	return token, nil
}

// RestoreSession implements [ClientAuthService].
func (a *clientAuthService) RestoreSession(ctx context.Context) (models.Token, error) {
	raw, ok, err := a.localStore.KeyValueStore.GetItem(ctx, SessionKey)
	if err != nil {
		return models.Token{}, fmt.Errorf("read session: %w", err)
	}
	if !ok || raw == "" {
		return models.Token{}, ErrLocalSessionNotFound
	}

	token, err := utils.ParseTokenUnverified(raw)
	if err != nil {
		_ = a.localStore.KeyValueStore.RemoveItem(ctx, SessionKey)
		return models.Token{}, fmt.Errorf("%w: %w", ErrTokenIsExpiredOrInvalid, err)
	}

	if token.ExpiresAt != nil && !token.ExpiresAt.After(a.now()) {
		_ = a.localStore.KeyValueStore.RemoveItem(ctx, SessionKey)
		return models.Token{}, ErrTokenIsExpired
	}

	a.adapter.SetToken(raw)
	return token, nil
}

// Logout implements [ClientAuthService].
func (a *clientAuthService) Logout(ctx context.Context) error {
	a.adapter.SetToken("")
	if err := a.localStore.KeyValueStore.RemoveItem(ctx, SessionKey); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
