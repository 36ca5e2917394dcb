// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package metrics exposes sync, queue and connectivity state as prometheus
// collectors and serves them together with a health summary on a small
// diagnostics router.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MKhiriev/go-checkin/models"
)

const namespace = "checkin"

// Sources are read on every scrape. Nil sources are not registered.
type Sources struct {
	// QueueSize returns the number of pending queued actions.
	QueueSize func() int
	// CacheBytes returns the estimated size of the cached tickets.
	CacheBytes func() int64
}

// Collectors implements service.SyncRecorder and tracks connectivity.
type Collectors struct {
	syncRuns          *prometheus.CounterVec
	itemsSynced       prometheus.Counter
	itemsFailed       prometheus.Counter
	permanentFailures prometheus.Counter
	syncDuration      prometheus.Histogram
	lastSync          prometheus.Gauge
	online            prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer, src Sources) (*Collectors, error) {
	c := &Collectors{
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Finished sync runs by outcome (success, partial).",
		}, []string{"outcome"}),
		itemsSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_items_synced_total",
			Help:      "Queued actions accepted by the server.",
		}),
		itemsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_items_failed_total",
			Help:      "Failed action dispatches, retryable or permanent.",
		}),
		permanentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_permanent_failures_total",
			Help:      "Queued actions dropped after the final retry.",
		}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		lastSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_last_run_timestamp_seconds",
			Help:      "Unix time of the last finished sync run.",
		}),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_online",
			Help:      "1 while the server is considered reachable.",
		}),
	}

	collectors := []prometheus.Collector{
		c.syncRuns, c.itemsSynced, c.itemsFailed, c.permanentFailures,
		c.syncDuration, c.lastSync, c.online,
	}

	if src.QueueSize != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_size",
			Help:      "Pending queued actions.",
		}, func() float64 { return float64(src.QueueSize()) }))
	}
	if src.CacheBytes != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_size_bytes",
			Help:      "Estimated size of the cached tickets.",
		}, func() float64 { return float64(src.CacheBytes()) }))
	}

	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return c, nil
}

// ObserveSync records a finished sync run.
func (c *Collectors) ObserveSync(result models.SyncResult) {
	outcome := "success"
	if !result.Success() {
		outcome = "partial"
	}

	c.syncRuns.WithLabelValues(outcome).Inc()
	c.itemsSynced.Add(float64(result.Synced))
	c.itemsFailed.Add(float64(result.Failed))
	c.permanentFailures.Add(float64(result.PermanentFailures))
	c.syncDuration.Observe(result.Duration.Seconds())
	c.lastSync.Set(float64(time.Now().Unix()))
}

// SetOnline records the connectivity state. It has the signature of a
// netmon.Listener.
func (c *Collectors) SetOnline(isOnline bool) {
	if isOnline {
		c.online.Set(1)
		return
	}
	c.online.Set(0)
}
