// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Token is the bearer token issued to a staff member at login.
//
// The client never verifies the signature (it does not hold the key); the
// claims are read only to learn the staff id and the expiry so the console
// can show who is signed in.
type Token struct {
	// RegisteredClaims holds the standard claim set read from the token.
	jwt.RegisteredClaims

	// SignedString is the compact JWS form sent in the Authorization header.
	SignedString string `json:"-"`

	// StaffID is the parsed "sub" claim.
	StaffID int64 `json:"-"`
}

// GetStaffID parses the "sub" claim as a base-10 int64.
func (t *Token) GetStaffID() (int64, error) {
	sub, err := t.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("error extracting staff id from token: %w", err)
	}

	staffID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error converting staff id from token to int64: %w", err)
	}

	return staffID, nil
}

// String returns the compact JWS serialization of the token.
func (t *Token) String() string {
	return t.SignedString
}
