// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/MKhiriev/go-checkin/internal/logger"
)

const shutdownTimeout = 5 * time.Second

// Server runs the diagnostics router in the background. It can be started
// again after Stop.
type Server struct {
	address string
	handler http.Handler
	logger  *logger.Logger

	mu     sync.Mutex
	server *http.Server
	done   chan struct{}
}

// NewServer creates a server for handler listening on address.
func NewServer(address string, handler http.Handler, log *logger.Logger) *Server {
	return &Server{address: address, handler: handler, logger: log}
}

// Start serves in a new goroutine until Stop. Starting a running server
// does nothing.
func (s *Server) Start(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return
	}

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	done := make(chan struct{})
	s.server, s.done = srv, done

	s.logger.Info().Str("func", "Server.Start").Str("address", s.address).Msg("diagnostics endpoint listening")

	go func() {
		defer close(done)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Err(err).Str("func", "Server.Start").Msg("diagnostics endpoint stopped")
		}
	}()
}

// Stop shuts the server down, waiting up to five seconds for open requests.
func (s *Server) Stop() {
	s.mu.Lock()
	srv, done := s.server, s.done
	s.server, s.done = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Err(err).Str("func", "Server.Stop").Msg("diagnostics endpoint shutdown")
	}
	<-done
}
