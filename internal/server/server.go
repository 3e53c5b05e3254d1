// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package server binds the listening socket and runs the HTTP server until told
to shut down.
*/
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thediveo/spaserver/internal/config"
)

// ShutdownTimeout limits how long in-flight requests get to finish when
// shutting down.
const ShutdownTimeout = 10 * time.Second

// readHeaderTimeout protects against clients trickling in request headers.
const readHeaderTimeout = 10 * time.Second

// Server serves a handler on the configured port of all IPv4 interfaces.
type Server struct {
	addr     string
	srv      *http.Server
	log      *logrus.Logger
	listener net.Listener
}

// New returns a new Server for the specified configuration and handler; it
// doesn't bind yet.
func New(cfg *config.Config, handler http.Handler, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		addr: cfg.Addr(),
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			ErrorLog:          newErrorLog(logger),
		},
		log: logger,
	}
}

// Listen binds the listening socket. Failing to bind is fatal to callers, so
// there are no retries.
func (s *Server) Listen() error {
	l, err := net.Listen("tcp4", s.addr)
	if err != nil {
		return fmt.Errorf("cannot listen on %s: %w", s.addr, err)
	}
	s.listener = l
	return nil
}

// Port returns the port the server is bound to, or 0 if not listening yet.
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Serve accepts and serves connections until the passed context gets
// cancelled, then gracefully shuts down, waiting at most ShutdownTimeout for
// in-flight requests. Serve binds first if Listen hasn't been called yet. It
// returns nil after a graceful shutdown.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.log.Infof("Server running on port %d", s.Port())

	done := make(chan error, 1)
	go func() {
		done <- s.srv.Serve(s.listener)
	}()

	select {
	case err := <-done:
		return fmt.Errorf("serving failed: %w", err)
	case <-ctx.Done():
	}

	s.log.WithField("action", "shutdown").Debug("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		_ = s.srv.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-done; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving failed: %w", err)
	}
	return nil
}
