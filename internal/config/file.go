// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk layout shared by the JSON and YAML formats.
type fileConfig struct {
	App struct {
		EventUUID string `json:"event_uuid" yaml:"event_uuid"`
		Login     string `json:"login" yaml:"login"`
		Password  string `json:"password" yaml:"password"`
		HashKey   string `json:"hash_key" yaml:"hash_key"`
		LogPath   string `json:"log_path" yaml:"log_path"`
	} `json:"app" yaml:"app"`

	Adapter struct {
		HTTPAddress    string   `json:"http_address" yaml:"http_address"`
		RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`
	} `json:"adapter" yaml:"adapter"`

	Storage struct {
		Driver string `json:"driver" yaml:"driver"`
		DB     struct {
			DSN string `json:"dsn" yaml:"dsn"`
		} `json:"db" yaml:"db"`
		Redis struct {
			Address  string `json:"address" yaml:"address"`
			Password string `json:"password" yaml:"password"`
			Database int    `json:"db" yaml:"db"`
		} `json:"redis" yaml:"redis"`
		QuotaBytes int64 `json:"quota_bytes" yaml:"quota_bytes"`
	} `json:"storage" yaml:"storage"`

	Sync struct {
		BatchSize       int      `json:"batch_size" yaml:"batch_size"`
		InterBatchDelay Duration `json:"inter_batch_delay" yaml:"inter_batch_delay"`
		MaxRetries      int      `json:"max_retries" yaml:"max_retries"`
		Interval        Duration `json:"interval" yaml:"interval"`
		ProbeInterval   Duration `json:"probe_interval" yaml:"probe_interval"`
		ProbePath       string   `json:"probe_path" yaml:"probe_path"`
	} `json:"sync" yaml:"sync"`

	Queue struct {
		MaxSize     int      `json:"max_size" yaml:"max_size"`
		DedupWindow Duration `json:"dedup_window" yaml:"dedup_window"`
		MaxAge      Duration `json:"max_age" yaml:"max_age"`
	} `json:"queue" yaml:"queue"`

	Cache struct {
		ChunkSize int      `json:"chunk_size" yaml:"chunk_size"`
		Duration  Duration `json:"duration" yaml:"duration"`
		Compress  bool     `json:"compress" yaml:"compress"`
	} `json:"cache" yaml:"cache"`

	Metrics struct {
		Address string `json:"address" yaml:"address"`
	} `json:"metrics" yaml:"metrics"`
}

// parseFile reads a JSON or YAML config file, chosen by extension.
func parseFile(path string) (*StructuredConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err = yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("error decoding yaml configs: %w", err)
		}
	case ".json", "":
		if err = json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("error decoding json configs: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedConfigFile, filepath.Ext(path))
	}

	return fc.toStructured(), nil
}

func (fc *fileConfig) toStructured() *StructuredConfig {
	cfg := &StructuredConfig{}

	cfg.App = App(fc.App)
	cfg.Adapter = Adapter{
		HTTPAddress:    fc.Adapter.HTTPAddress,
		RequestTimeout: time.Duration(fc.Adapter.RequestTimeout),
	}
	cfg.Storage = Storage{
		Driver:     fc.Storage.Driver,
		DB:         DB{DSN: fc.Storage.DB.DSN},
		Redis:      Redis(fc.Storage.Redis),
		QuotaBytes: fc.Storage.QuotaBytes,
	}
	cfg.Sync = Sync{
		BatchSize:       fc.Sync.BatchSize,
		InterBatchDelay: time.Duration(fc.Sync.InterBatchDelay),
		MaxRetries:      fc.Sync.MaxRetries,
		Interval:        time.Duration(fc.Sync.Interval),
		ProbeInterval:   time.Duration(fc.Sync.ProbeInterval),
		ProbePath:       fc.Sync.ProbePath,
	}
	cfg.Queue = Queue{
		MaxSize:     fc.Queue.MaxSize,
		DedupWindow: time.Duration(fc.Queue.DedupWindow),
		MaxAge:      time.Duration(fc.Queue.MaxAge),
	}
	cfg.Cache = Cache{
		ChunkSize: fc.Cache.ChunkSize,
		Duration:  time.Duration(fc.Cache.Duration),
		Compress:  fc.Cache.Compress,
	}
	cfg.Metrics = Metrics(fc.Metrics)

	return cfg
}

// Duration is a wrapper around time.Duration that unmarshals from strings
// like "1h" or "30s" in both JSON and YAML. Bare numbers are milliseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value) * time.Millisecond)
		return nil
	case string:
		tmp, err := parseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	tmp, err := parseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q at line %d: %w", node.Value, node.Line, err)
	}
	*d = Duration(tmp)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
