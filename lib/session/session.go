// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"log/slog"
	"sync"

	"github.com/bureau-foundation/railbook/lib/netutil"
	"github.com/bureau-foundation/railbook/lib/protocol"
)

// pushBufferSize is how many undelivered pushes a session holds before
// further pushes are dropped.
const pushBufferSize = 16

// Session is one terminal's connection, as registered by CONNECT.
type Session struct {
	terminalID string
	conn       *protocol.Conn
	logger     *slog.Logger

	pushes     chan protocol.Envelope
	stop       chan struct{}
	stopOnce   sync.Once
	writerDone chan struct{}
}

// New returns a Session for terminalID on conn and starts its push
// writer. The caller still owns conn and must call Close once the
// session ends.
func New(terminalID string, conn *protocol.Conn, logger *slog.Logger) *Session {
	s := &Session{
		terminalID: terminalID,
		conn:       conn,
		logger:     logger.With("terminal", terminalID),
		pushes:     make(chan protocol.Envelope, pushBufferSize),
		stop:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	go s.writePushes()
	return s
}

// TerminalID returns the id the session was registered under.
func (s *Session) TerminalID() string {
	return s.terminalID
}

// Send writes a reply envelope.
func (s *Session) Send(envelope protocol.Envelope) error {
	return s.conn.Send(envelope)
}

// enqueue offers a push to the writer without blocking.
func (s *Session) enqueue(envelope protocol.Envelope) bool {
	select {
	case <-s.stop:
		return false
	default:
	}
	select {
	case s.pushes <- envelope:
		return true
	default:
		return false
	}
}

func (s *Session) writePushes() {
	defer close(s.writerDone)
	for {
		select {
		case <-s.stop:
			return
		case envelope := <-s.pushes:
			err := s.conn.Send(envelope)
			switch {
			case err == nil:
			case netutil.IsExpectedCloseError(err):
				s.logger.Debug("push not delivered, connection closed",
					"payload", envelope.Payload,
				)
			default:
				s.logger.Warn("push not delivered",
					"payload", envelope.Payload,
					"error", err,
				)
			}
		}
	}
}

// Close stops the push writer and waits for it to exit. Pushes still
// buffered are discarded. Close the connection first if a write may be
// blocked on it.
func (s *Session) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.writerDone
}
