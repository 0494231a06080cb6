// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/bureau-foundation/railbook/lib/clock"
	"github.com/bureau-foundation/railbook/lib/netutil"
	"github.com/bureau-foundation/railbook/lib/protocol"
	"github.com/bureau-foundation/railbook/lib/reservation"
	"github.com/bureau-foundation/railbook/lib/session"
)

// Config holds a Dispatcher's collaborators.
type Config struct {
	Authority *reservation.Authority
	Directory *session.Directory
	Clock     clock.Clock
	Logger    *slog.Logger

	// WriteTimeout bounds each reply and push write. Zero disables the
	// deadline.
	WriteTimeout time.Duration
}

// Dispatcher serves terminal connections.
type Dispatcher struct {
	authority    *reservation.Authority
	directory    *session.Directory
	clock        clock.Clock
	logger       *slog.Logger
	writeTimeout time.Duration
	startedAt    time.Time
}

// New returns a Dispatcher. The start time reported by STATUS is taken
// from config.Clock now.
func New(config Config) *Dispatcher {
	return &Dispatcher{
		authority:    config.Authority,
		directory:    config.Directory,
		clock:        config.Clock,
		logger:       config.Logger,
		writeTimeout: config.WriteTimeout,
		startedAt:    config.Clock.Now(),
	}
}

// connection is the per-connection state of ServeConn.
type connection struct {
	dispatcher *Dispatcher
	conn       *protocol.Conn
	logger     *slog.Logger

	// session is set by CONNECT. Before that the connection has no
	// push target and requests act for the envelope's origin.
	session *session.Session
}

// ServeConn runs the request loop for one connection until the peer
// disconnects, the stream breaks, or ctx is cancelled and the
// connection is closed from outside.
func (d *Dispatcher) ServeConn(ctx context.Context, netConn net.Conn) {
	c := &connection{
		dispatcher: d,
		conn:       protocol.NewConn(netConn, d.writeTimeout),
		logger:     d.logger.With("remote", remoteName(netConn)),
	}
	defer c.teardown()

	c.logger.Debug("connection accepted")
	for {
		envelope, err := c.conn.Receive()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedEnvelope) {
				c.logger.Debug("malformed envelope", "error", err)
				if sendErr := c.reply(protocol.Failure(err.Error())); sendErr != nil {
					c.logger.Info("connection lost", "error", sendErr)
					return
				}
				continue
			}
			if ctx.Err() != nil || netutil.IsExpectedCloseError(err) {
				c.logger.Debug("connection closed", "error", err)
			} else {
				c.logger.Info("connection lost", "error", err)
			}
			return
		}

		if envelope.Type == protocol.TypeDisconnect {
			c.logger.Debug("disconnect requested", "origin", envelope.Origin)
			return
		}

		if err := c.reply(c.handle(envelope)); err != nil {
			c.logger.Info("connection lost", "error", err)
			return
		}
	}
}

// reply writes a response, through the session once CONNECT has made
// one so replies and pushes share its writer.
func (c *connection) reply(envelope protocol.Envelope) error {
	if c.session != nil {
		return c.session.Send(envelope)
	}
	return c.conn.Send(envelope)
}

// identity is the terminal a request acts for: the CONNECTed terminal
// if there is one, otherwise the envelope's origin.
func (c *connection) identity(envelope protocol.Envelope) string {
	if c.session != nil {
		return c.session.TerminalID()
	}
	return envelope.Origin
}

// endSession unregisters the current session, if any, and stops its
// push writer.
func (c *connection) endSession() {
	if c.session == nil {
		return
	}
	c.dispatcher.directory.Unregister(c.session)
	c.session.Close()
	c.session = nil
}

func (c *connection) teardown() {
	if c.session != nil {
		c.dispatcher.directory.Unregister(c.session)
	}
	// Closing first unblocks a push writer stuck on a dead peer.
	c.conn.Close()
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	c.logger.Debug("connection released")
}

func remoteName(conn net.Conn) string {
	address := conn.RemoteAddr()
	if address == nil || address.String() == "" {
		return conn.LocalAddr().Network()
	}
	return address.String()
}
