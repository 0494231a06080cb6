// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ErrMalformedEnvelope reports a well-formed CBOR item that is not an
// envelope: the wrong CBOR type, a non-text field, a duplicated key, or
// an empty type tag. The stream is still aligned on the next item, so
// the reader may continue.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Conn carries envelopes over a stream connection. Receive must be
// called from one goroutine at a time; Send may be called from any
// number of goroutines and writes whole envelopes atomically.
type Conn struct {
	conn         net.Conn
	decoder      *cbor.Decoder
	writeTimeout time.Duration

	writeMu sync.Mutex
	encoder *cbor.Encoder
}

// NewConn wraps conn. A positive writeTimeout bounds every Send so a
// peer that stops reading cannot hold the write lock indefinitely.
func NewConn(conn net.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{
		conn:         conn,
		decoder:      newDecoder(conn),
		encoder:      newEncoder(conn),
		writeTimeout: writeTimeout,
	}
}

// Receive blocks until the next envelope arrives. An error wrapping
// ErrMalformedEnvelope leaves the stream usable. Any other error
// (EOF, reset, CBOR syntax) means the stream cannot continue.
func (c *Conn) Receive() (Envelope, error) {
	var raw cbor.RawMessage
	if err := c.decoder.Decode(&raw); err != nil {
		return Envelope{}, err
	}

	var envelope Envelope
	if err := Unmarshal(raw, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if envelope.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	return envelope, nil
}

// Send writes one envelope.
func (c *Conn) Send(envelope Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("setting write deadline: %w", err)
		}
	}
	if err := c.encoder.Encode(envelope); err != nil {
		return fmt.Errorf("writing %s envelope: %w", envelope.Type, err)
	}
	return nil
}

// RemoteAddr returns the peer address of the underlying connection.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the underlying connection, unblocking a pending Receive.
func (c *Conn) Close() error {
	return c.conn.Close()
}
