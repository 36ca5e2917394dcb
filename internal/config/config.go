// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the
// check-in client. It is populated by merging default values, environment
// variables, command-line flags and an optional JSON or YAML file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds the staff credentials, the event being worked and the
	// request signing key.
	App App `envPrefix:"APP_"`

	// Adapter holds the remote API address and request timeout.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Storage selects and configures the durable key/value store.
	Storage Storage `envPrefix:"STORAGE_"`

	// Sync controls the sync orchestrator and the background sync job.
	Sync Sync `envPrefix:"SYNC_"`

	// Queue controls the offline action queue.
	Queue Queue `envPrefix:"QUEUE_"`

	// Cache controls the local ticket cache.
	Cache Cache `envPrefix:"CACHE_"`

	// Metrics holds the diagnostics endpoint settings.
	Metrics Metrics `envPrefix:"METRICS_"`

	// FilePath is the optional path to a JSON (.json) or YAML (.yaml/.yml)
	// configuration file. Populated via the CONFIG environment variable or
	// the -c / -config flag.
	FilePath string `env:"CONFIG"`
}

// App holds application-level settings.
type App struct {
	// EventUUID is the event the device is checking tickets in for.
	// Env: APP_EVENT_UUID
	EventUUID string `env:"EVENT_UUID"`

	// Login and Password are the staff credentials used at startup.
	// Env: APP_LOGIN, APP_PASSWORD
	Login    string `env:"LOGIN"`
	Password string `env:"PASSWORD"`

	// HashKey signs mutation request bodies (HashSHA256 header).
	// Optional; an empty key disables signing.
	// Env: APP_HASH_KEY
	HashKey string `env:"HASH_KEY"`

	// LogPath is the client log file. Empty means "logs" next to the binary.
	// Env: APP_LOG_PATH
	LogPath string `env:"LOG_PATH"`
}

// Adapter holds remote API settings.
type Adapter struct {
	// HTTPAddress is the base address of the check-in API
	// (e.g. "https://checkin.example.com" or "localhost:8080").
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds every remote call. The orchestrator has no
	// timeout of its own; a stuck batch is bounded only by this value.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Storage selects the durable key/value backend.
type Storage struct {
	// Driver is one of "sqlite", "postgres", "redis" or "memory".
	// Env: STORAGE_DRIVER
	Driver string `env:"DRIVER"`

	// DB holds SQL connection settings for the sqlite and postgres drivers.
	DB DB `envPrefix:"DB_"`

	// Redis holds connection settings for the redis driver.
	Redis Redis `envPrefix:"REDIS_"`

	// QuotaBytes caps the memory driver's total value size. Zero means
	// unlimited. Useful to reproduce quota pressure on a workstation.
	// Env: STORAGE_QUOTA_BYTES
	QuotaBytes int64 `env:"QUOTA_BYTES"`
}

// DB holds SQL connection settings.
type DB struct {
	// DSN is a file path for sqlite or a connection URI for postgres.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Redis holds Redis connection settings.
type Redis struct {
	// Env: STORAGE_REDIS_ADDRESS
	Address string `env:"ADDRESS"`
	// Env: STORAGE_REDIS_PASSWORD
	Password string `env:"PASSWORD"`
	// Env: STORAGE_REDIS_DB
	Database int `env:"DB"`
}

// Sync holds sync orchestrator settings.
type Sync struct {
	// Env: SYNC_BATCH_SIZE
	BatchSize int `env:"BATCH_SIZE"`
	// Env: SYNC_INTER_BATCH_DELAY
	InterBatchDelay time.Duration `env:"INTER_BATCH_DELAY"`
	// Env: SYNC_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`
	// Interval is the period of the background sync job.
	// Env: SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL"`
	// ProbeInterval is the period of the active reachability probe while
	// offline. Defaults to 30s; a negative value disables probing.
	// Env: SYNC_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`
	// ProbePath is the lightweight endpoint hit by the probe.
	// Env: SYNC_PROBE_PATH
	ProbePath string `env:"PROBE_PATH"`
}

// Queue holds action queue settings.
type Queue struct {
	// Env: QUEUE_MAX_SIZE
	MaxSize int `env:"MAX_SIZE"`
	// Env: QUEUE_DEDUP_WINDOW
	DedupWindow time.Duration `env:"DEDUP_WINDOW"`
	// Env: QUEUE_MAX_AGE
	MaxAge time.Duration `env:"MAX_AGE"`
}

// Cache holds ticket cache settings.
type Cache struct {
	// Env: CACHE_CHUNK_SIZE
	ChunkSize int `env:"CHUNK_SIZE"`
	// Duration is the freshness TTL.
	// Env: CACHE_DURATION
	Duration time.Duration `env:"DURATION"`
	// Compress stores chunk values snappy-compressed.
	// Env: CACHE_COMPRESS
	Compress bool `env:"COMPRESS"`
}

// Metrics holds diagnostics endpoint settings.
type Metrics struct {
	// Address is the host:port of the /metrics endpoint. Empty disables it.
	// Env: METRICS_ADDRESS
	Address string `env:"ADDRESS"`
}

// Defaults returns the built-in configuration values. They are merged first,
// so every other source overrides them.
func Defaults() *StructuredConfig {
	return &StructuredConfig{
		Adapter: Adapter{
			RequestTimeout: 15 * time.Second,
		},
		Storage: Storage{
			Driver: DriverSQLite,
			DB:     DB{DSN: "checkin.db"},
		},
		Sync: Sync{
			BatchSize:       50,
			InterBatchDelay: time.Second,
			MaxRetries:      3,
			Interval:        5 * time.Minute,
			ProbeInterval:   30 * time.Second,
			ProbePath:       "/api/ping",
		},
		Queue: Queue{
			MaxSize:     1000,
			DedupWindow: 5 * time.Minute,
			MaxAge:      7 * 24 * time.Hour,
		},
		Cache: Cache{
			ChunkSize: 1000,
			Duration:  24 * time.Hour,
		},
	}
}

// Storage drivers accepted by [Storage.Driver].
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// GetStructuredConfig loads, merges, and validates the configuration from
// all available sources in the following priority order (last source wins
// for non-zero fields):
//  1. Built-in defaults
//  2. Environment variables
//  3. Command-line flags
//  4. JSON or YAML file (path resolved from sources 2 and 3)
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withDefaults().
		withEnv().
		withFlags(args).
		withFile().
		build()
}
