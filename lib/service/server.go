// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
)

// ConnHandler serves one accepted connection until it ends. The server
// closes the connection after ServeConn returns.
type ConnHandler interface {
	ServeConn(ctx context.Context, conn net.Conn)
}

// HandlerFunc adapts a function to ConnHandler.
type HandlerFunc func(ctx context.Context, conn net.Conn)

func (f HandlerFunc) ServeConn(ctx context.Context, conn net.Conn) { f(ctx, conn) }

// Server accepts connections on one listener.
type Server struct {
	network string
	address string
	handler ConnHandler
	logger  *slog.Logger

	listener net.Listener

	mu          sync.Mutex
	connections map[net.Conn]struct{}
	closing     bool

	// activeConnections tracks running handlers so Serve can wait for
	// them before returning.
	activeConnections sync.WaitGroup
}

// NewServer returns a server for network ("tcp" or "unix") and
// address. Call Listen to bind early, or let Serve bind.
func NewServer(network, address string, handler ConnHandler, logger *slog.Logger) *Server {
	return &Server{
		network:     network,
		address:     address,
		handler:     handler,
		logger:      logger,
		connections: make(map[net.Conn]struct{}),
	}
}

// Listen binds the listener. For a Unix socket, a stale socket file at
// the address is removed first.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	switch s.network {
	case "tcp", "tcp4", "tcp6":
	case "unix":
		if err := os.Remove(s.address); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing stale socket %s: %w", s.address, err)
		}
	default:
		return fmt.Errorf("unsupported network %q", s.network)
	}

	listener, err := net.Listen(s.network, s.address)
	if err != nil {
		return fmt.Errorf("listening on %s %s: %w", s.network, s.address, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled, then closes the
// listener and every live connection and waits for all handlers to
// return. A Unix socket file is removed on return.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	listener := s.listener
	defer func() {
		listener.Close()
		if s.network == "unix" {
			os.Remove(s.address)
		}
	}()

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
		}
		listener.Close()
		s.closeConnections()
	}()

	s.logger.Info("server listening",
		"network", s.network,
		"address", listener.Addr().String(),
	)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}
		if !s.track(conn) {
			conn.Close()
			break
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			defer s.untrack(conn)
			defer conn.Close()
			s.handler.ServeConn(ctx, conn)
		}()
	}

	s.closeConnections()
	s.activeConnections.Wait()
	s.logger.Info("server stopped", "address", listener.Addr().String())
	return nil
}

// track records a live connection. It returns false once shutdown has
// begun.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.connections[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, conn)
}

// closeConnections closes every live connection and refuses new ones.
func (s *Server) closeConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	for conn := range s.connections {
		conn.Close()
	}
}

// ActiveConnections returns the number of connections being served.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}
