// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package netmon

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"
)

// httpStatusError is implemented by errors that carry an HTTP response
// status, such as the adapter's API error. A server that answered is
// reachable, whatever the status.
type httpStatusError interface {
	HTTPStatus() int
}

// IsNetworkError reports whether err means the remote API could not be
// reached: timeouts, DNS failures, refused or reset connections, unreachable
// hosts, and connections closed before a response arrived.
//
// Errors carrying an HTTP status are never network errors, and neither is
// context.Canceled, which signals the caller gave up.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.ENETDOWN),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ETIMEDOUT):
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// a transport-level failure of an HTTP request with no response
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
