// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// dialTimeout bounds the connect phase of Dial.
const dialTimeout = 5 * time.Second

// clientWriteTimeout bounds each request write.
const clientWriteTimeout = 10 * time.Second

// pushBufferSize is the number of unread pushes a Client holds before
// it starts dropping them.
const pushBufferSize = 64

// ErrClientClosed is returned by Call after the connection has ended.
var ErrClientClosed = errors.New("protocol client closed")

// FailureError is returned by Call when the server answers FAILURE.
type FailureError struct {
	Type    Type
	Message string
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Type, e.Message)
}

// Client is a terminal-side connection. A background goroutine reads
// envelopes and splits pushes from responses; Call sends one request
// and waits for its response. Calls are serialized, matching the
// server's 1:1 ordering.
type Client struct {
	conn       *Conn
	terminalID string

	callMu    sync.Mutex
	responses chan Envelope
	pushes    chan Envelope

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	readErr  error
}

// Dial connects to a server and starts the reader. It does not send
// CONNECT; call Connect for that.
func Dial(ctx context.Context, network, address, terminalID string) (*Client, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dialing %s %s: %w", network, address, err)
	}
	return NewClient(conn, terminalID), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, terminalID string) *Client {
	client := &Client{
		conn:       NewConn(conn, clientWriteTimeout),
		terminalID: terminalID,
		responses:  make(chan Envelope, 1),
		pushes:     make(chan Envelope, pushBufferSize),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go client.readLoop()
	return client
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		envelope, err := c.conn.Receive()
		if err != nil {
			if errors.Is(err, ErrMalformedEnvelope) {
				continue
			}
			c.readErr = err
			return
		}
		if envelope.Type == TypeOrderUpdate {
			select {
			case c.pushes <- envelope:
			default:
			}
			continue
		}
		select {
		case c.responses <- envelope:
		case <-c.stop:
			return
		}
	}
}

// Call sends a request and returns the response payload. A FAILURE
// response is returned as *FailureError. If ctx ends before the
// response arrives the connection is closed, since a late response
// would otherwise be paired with the next call.
func (c *Client) Call(ctx context.Context, requestType Type, payload string) (string, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	select {
	case <-c.done:
		return "", c.closedError()
	default:
	}

	if err := c.conn.Send(Envelope{Origin: c.terminalID, Type: requestType, Payload: payload}); err != nil {
		return "", err
	}

	select {
	case response := <-c.responses:
		if response.Type == TypeFailure {
			return "", &FailureError{Type: requestType, Message: response.Payload}
		}
		return response.Payload, nil
	case <-c.done:
		return "", c.closedError()
	case <-ctx.Done():
		c.Close()
		return "", ctx.Err()
	}
}

// Connect sends CONNECT, registering this terminal for pushes.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.Call(ctx, TypeConnect, c.terminalID)
	return err
}

// Send writes an envelope without waiting for a response. Tests use it
// for DISCONNECT and for deliberately malformed traffic.
func (c *Client) Send(envelope Envelope) error {
	return c.conn.Send(envelope)
}

// Disconnect sends DISCONNECT and waits for the server to close the
// connection.
func (c *Client) Disconnect(ctx context.Context) error {
	if err := c.conn.Send(Envelope{Origin: c.terminalID, Type: TypeDisconnect}); err != nil {
		return err
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		c.Close()
		return ctx.Err()
	}
}

// Pushes delivers ORDER_UPDATE envelopes. Pushes beyond the buffer are
// dropped.
func (c *Client) Pushes() <-chan Envelope {
	return c.pushes
}

// Done is closed when the reader stops.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection without sending DISCONNECT.
func (c *Client) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return c.conn.Close()
}

func (c *Client) closedError() error {
	if c.readErr != nil {
		return fmt.Errorf("%w: %v", ErrClientClosed, c.readErr)
	}
	return ErrClientClosed
}
