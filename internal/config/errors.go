// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidAdapterConfigs indicates a missing API address or timeout.
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
	// ErrInvalidStorageConfigs indicates an unknown driver or a missing DSN
	// or Redis address for the selected driver.
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidAppConfigs indicates a missing event UUID.
	ErrInvalidAppConfigs = errors.New("invalid app configuration")
	// ErrInvalidSyncConfigs indicates non-positive batch size, retry bound
	// or sync interval.
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrInvalidQueueConfigs indicates non-positive queue limits.
	ErrInvalidQueueConfigs = errors.New("invalid queue configuration")
	// ErrInvalidCacheConfigs indicates a non-positive chunk size or TTL.
	ErrInvalidCacheConfigs = errors.New("invalid cache configuration")
	// ErrUnsupportedConfigFile is returned for config files that are
	// neither JSON nor YAML.
	ErrUnsupportedConfigFile = errors.New("unsupported config file format")
)
