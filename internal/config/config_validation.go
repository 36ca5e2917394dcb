// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

// validate checks that the final merged [StructuredConfig] is usable by the
// client before any component is constructed.
func (cfg *StructuredConfig) validate() error {
	if cfg.App.EventUUID == "" {
		return ErrInvalidAppConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	switch cfg.Storage.Driver {
	case DriverSQLite, DriverPostgres:
		if cfg.Storage.DB.DSN == "" {
			return ErrInvalidStorageConfigs
		}
	case DriverRedis:
		if cfg.Storage.Redis.Address == "" {
			return ErrInvalidStorageConfigs
		}
	case DriverMemory:
	default:
		return ErrInvalidStorageConfigs
	}

	if cfg.Sync.BatchSize <= 0 || cfg.Sync.MaxRetries <= 0 || cfg.Sync.Interval <= 0 || cfg.Sync.InterBatchDelay < 0 {
		return ErrInvalidSyncConfigs
	}

	if cfg.Queue.MaxSize <= 0 || cfg.Queue.DedupWindow <= 0 || cfg.Queue.MaxAge <= 0 {
		return ErrInvalidQueueConfigs
	}

	if cfg.Cache.ChunkSize <= 0 || cfg.Cache.Duration <= 0 {
		return ErrInvalidCacheConfigs
	}

	return nil
}
