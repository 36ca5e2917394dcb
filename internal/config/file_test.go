// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile_JSON(t *testing.T) {
	path := writeTempConfig(t, "c.json", `{
		"adapter": {"http_address": "localhost:8080", "request_timeout": "5s"},
		"storage": {"driver": "redis", "redis": {"address": "localhost:6379", "db": 1}},
		"sync": {"inter_batch_delay": 500},
		"queue": {"max_age": "48h"}
	}`)

	cfg, err := parseFile(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.Adapter.HTTPAddress)
	assert.Equal(t, 5*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, Redis{Address: "localhost:6379", Database: 1}, cfg.Storage.Redis)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.InterBatchDelay)
	assert.Equal(t, 48*time.Hour, cfg.Queue.MaxAge)
}

func TestParseFile_YAML(t *testing.T) {
	path := writeTempConfig(t, "c.yml", `
app:
  event_uuid: evt-1
  hash_key: secret
sync:
  interval: 2m
  probe_interval: 10s
cache:
  chunk_size: 500
  compress: true
metrics:
  address: ":9100"
`)

	cfg, err := parseFile(path)
	require.NoError(t, err)

	assert.Equal(t, "evt-1", cfg.App.EventUUID)
	assert.Equal(t, "secret", cfg.App.HashKey)
	assert.Equal(t, 2*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 10*time.Second, cfg.Sync.ProbeInterval)
	assert.Equal(t, 500, cfg.Cache.ChunkSize)
	assert.True(t, cfg.Cache.Compress)
	assert.Equal(t, ":9100", cfg.Metrics.Address)
}

func TestParseFile_Errors(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		_, err := parseFile(writeTempConfig(t, "c.toml", "x = 1"))
		assert.ErrorIs(t, err, ErrUnsupportedConfigFile)
	})
	t.Run("broken json", func(t *testing.T) {
		_, err := parseFile(writeTempConfig(t, "c.json", "{"))
		assert.Error(t, err)
	})
	t.Run("bad yaml duration", func(t *testing.T) {
		_, err := parseFile(writeTempConfig(t, "c.yaml", "sync:\n  interval: soon\n"))
		assert.Error(t, err)
	})
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, time.Duration(d))

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"1m30s"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
}
