// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/bureau-foundation/railbook/lib/protocol"
)

// Directory is the set of online terminals. At most one session is
// registered per terminal id.
type Directory struct {
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewDirectory returns an empty Directory.
func NewDirectory(logger *slog.Logger) *Directory {
	return &Directory{
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Register makes session the push target for its terminal id and
// returns the session it replaced, or nil.
func (d *Directory) Register(session *Session) *Session {
	d.mu.Lock()
	replaced := d.sessions[session.terminalID]
	d.sessions[session.terminalID] = session
	online := len(d.sessions)
	d.mu.Unlock()

	if replaced != nil && replaced != session {
		d.logger.Info("terminal session replaced",
			"terminal", session.terminalID,
			"online", online,
		)
		return replaced
	}
	d.logger.Info("terminal online",
		"terminal", session.terminalID,
		"online", online,
	)
	return nil
}

// Unregister removes session if it is still the registered session for
// its terminal id, and reports whether it did. A session replaced by a
// later registration is left alone.
func (d *Directory) Unregister(session *Session) bool {
	d.mu.Lock()
	current, exists := d.sessions[session.terminalID]
	if !exists || current != session {
		d.mu.Unlock()
		return false
	}
	delete(d.sessions, session.terminalID)
	online := len(d.sessions)
	d.mu.Unlock()

	d.logger.Info("terminal offline",
		"terminal", session.terminalID,
		"online", online,
	)
	return true
}

// Lookup returns the session registered for terminalID.
func (d *Directory) Lookup(terminalID string) (*Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	session, exists := d.sessions[terminalID]
	return session, exists
}

// Push queues envelope for terminalID and reports whether it was
// accepted. It never blocks: an offline terminal or a full push buffer
// drops the envelope.
func (d *Directory) Push(terminalID string, envelope protocol.Envelope) bool {
	session, online := d.Lookup(terminalID)
	if !online {
		d.logger.Warn("push dropped, terminal offline",
			"terminal", terminalID,
			"payload", envelope.Payload,
		)
		return false
	}
	if !session.enqueue(envelope) {
		d.logger.Warn("push dropped, buffer full",
			"terminal", terminalID,
			"payload", envelope.Payload,
		)
		return false
	}
	return true
}

// Terminals returns the online terminal ids, sorted.
func (d *Directory) Terminals() []string {
	d.mu.RLock()
	terminals := make([]string, 0, len(d.sessions))
	for terminalID := range d.sessions {
		terminals = append(terminals, terminalID)
	}
	d.mu.RUnlock()
	sort.Strings(terminals)
	return terminals
}

// Len returns the number of online terminals.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}
