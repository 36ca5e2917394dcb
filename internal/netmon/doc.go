// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package netmon tracks whether the remote API is reachable.
//
// Connectivity is inferred passively from the outcome of real remote calls:
// the adapter reports every success or connectivity failure through
// [Monitor.SetOnlineStatus]. Subscribers registered with [Monitor.AddListener]
// are notified only on transitions. [IsNetworkError] is the single place that
// decides whether a failed call means "the network is gone" or "the server
// said no".
//
// While offline an optional [ProbeWorker] polls a lightweight endpoint so the
// client notices recovery without waiting for the next user action.
package netmon
