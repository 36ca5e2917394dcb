// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-checkin/models"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidAuthorizationHeader is returned by ParseBearerToken when the
// header is not of the form "Bearer <token>".
var ErrInvalidAuthorizationHeader = errors.New("invalid authorization header")

// ParseBearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func ParseBearerToken(authorizationHeader string) (string, error) {
	parts := strings.Split(strings.TrimSpace(authorizationHeader), " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", ErrInvalidAuthorizationHeader
	}
	return parts[1], nil
}

// ParseTokenUnverified decodes the claims of a server-issued token without
// verifying its signature and resolves the staff id from the subject claim.
//
// The client has no access to the signing key; the server remains the only
// party that validates tokens.
func ParseTokenUnverified(tokenString string) (models.Token, error) {
	token := models.Token{SignedString: tokenString}

	_, _, err := jwt.NewParser().ParseUnverified(tokenString, &token.RegisteredClaims)
	if err != nil {
		return models.Token{}, fmt.Errorf("parse token claims: %w", err)
	}

	staffID, err := token.GetStaffID()
	if err != nil {
		return models.Token{}, err
	}
	token.StaffID = staffID

	return token, nil
}
