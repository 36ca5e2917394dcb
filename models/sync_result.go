// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// SyncError pairs a queue item with the error that made it fail permanently.
type SyncError struct {
	Item QueueItem
	Err  error
}

// SyncResult aggregates the outcome of one sync run. It is produced once per
// run, broadcast to listeners and never persisted.
type SyncResult struct {
	// Synced counts items accepted by the server and removed from the queue.
	Synced int
	// Failed counts every failed dispatch, retryable or permanent.
	Failed int
	// Total is the size of the queue snapshot taken at the start of the run.
	Total int
	// PermanentFailures counts items dropped after exhausting retries.
	PermanentFailures int
	// Errors lists the permanently failed items.
	Errors []SyncError
	// Duration is the wall time of the run.
	Duration time.Duration
}

// Success reports whether every item in the run was synced.
func (r SyncResult) Success() bool {
	return r.Failed == 0 && r.Synced == r.Total
}

// SyncProgress is reported after every dispatched item.
type SyncProgress struct {
	Processed int
	Total     int
	Batch     int
	Batches   int
}

// Fraction returns the completed share of the run in [0, 1].
func (p SyncProgress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Processed) / float64(p.Total)
}
