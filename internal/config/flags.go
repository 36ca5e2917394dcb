// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// parseFlags parses the client command-line flags from args (without the
// program name).
//
// Flags:
//
//	-a                  remote API address
//	-request-timeout    per-request timeout (e.g. "15s")
//	-event              event UUID
//	-login, -password   staff credentials
//	-hash-key           request signing key
//	-log                log file path
//	-storage            storage driver (sqlite|postgres|redis|memory)
//	-d                  SQL DSN
//	-redis              redis address host:port
//	-batch-size         sync batch size
//	-batch-delay        delay between sync batches
//	-max-retries        retries before an action is dropped
//	-sync-interval      background sync period
//	-probe-interval     reachability probe period while offline
//	-metrics-address    diagnostics listen address host:port
//	-c / -config        JSON or YAML config file path
func parseFlags(args []string) (*StructuredConfig, error) {
	fs := flag.NewFlagSet("go-checkin", flag.ContinueOnError)

	var metricsAddress NetAddress
	cfg := &StructuredConfig{}

	fs.StringVar(&cfg.Adapter.HTTPAddress, "a", "", "Remote API address")
	fs.DurationVar(&cfg.Adapter.RequestTimeout, "request-timeout", 0, "Request timeout (e.g., 15s)")
	fs.StringVar(&cfg.App.EventUUID, "event", "", "Event UUID")
	fs.StringVar(&cfg.App.Login, "login", "", "Staff login")
	fs.StringVar(&cfg.App.Password, "password", "", "Staff password")
	fs.StringVar(&cfg.App.HashKey, "hash-key", "", "Request signing key")
	fs.StringVar(&cfg.App.LogPath, "log", "", "Log file path")
	fs.StringVar(&cfg.Storage.Driver, "storage", "", "Storage driver: sqlite, postgres, redis or memory")
	fs.StringVar(&cfg.Storage.DB.DSN, "d", "", "SQL DSN")
	fs.StringVar(&cfg.Storage.Redis.Address, "redis", "", "Redis address host:port")
	fs.IntVar(&cfg.Sync.BatchSize, "batch-size", 0, "Sync batch size")
	fs.DurationVar(&cfg.Sync.InterBatchDelay, "batch-delay", 0, "Delay between sync batches")
	fs.IntVar(&cfg.Sync.MaxRetries, "max-retries", 0, "Attempts before a queued action is dropped")
	fs.DurationVar(&cfg.Sync.Interval, "sync-interval", 0, "Background sync period")
	fs.DurationVar(&cfg.Sync.ProbeInterval, "probe-interval", 0, "Reachability probe period while offline (negative disables)")
	fs.Var(&metricsAddress, "metrics-address", "Diagnostics listen address host:port")
	fs.StringVar(&cfg.FilePath, "c", "", "Config file path (.json, .yaml)")
	fs.StringVar(&cfg.FilePath, "config", "", "Config file path (alias)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}
	cfg.Metrics.Address = metricsAddress.String()

	return cfg, nil
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// An empty host means all interfaces. Hosts other than "localhost" must be
// IP addresses.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 || port > 65535 {
		return errors.New("port number must be in range 1-65535")
	}

	if host != "" && host != "localhost" {
		if ip := net.ParseIP(host); ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}

var _ flag.Value = (*NetAddress)(nil)

// parseDuration accepts Go duration strings ("1s") and bare integers, which
// are read as milliseconds.
func parseDuration(s string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}
