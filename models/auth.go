// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// Credentials are the staff login credentials sent to the auth endpoint.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}
