// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package netmon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) HTTPStatus() int { return e.code }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsNetworkError(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("validation failed"), want: false},
		{name: "http status 500", err: statusErr{500}, want: false},
		{name: "wrapped http status 404", err: fmt.Errorf("scan: %w", statusErr{404}), want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "eof", err: io.EOF, want: true},
		{name: "unexpected eof", err: fmt.Errorf("read: %w", io.ErrUnexpectedEOF), want: true},
		{name: "connection refused", err: refused, want: true},
		{name: "connection reset errno", err: syscall.ECONNRESET, want: true},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "api.example.com", IsNotFound: true}, want: true},
		{name: "timeout net.Error", err: timeoutErr{}, want: true},
		{name: "url error", err: &url.Error{Op: "Get", URL: "http://x", Err: refused}, want: true},
		{name: "url error wrapping status", err: &url.Error{Op: "Get", URL: "http://x", Err: statusErr{401}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNetworkError(tt.err))
		})
	}
}
