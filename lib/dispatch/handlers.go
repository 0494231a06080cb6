// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/railbook/lib/protocol"
	"github.com/bureau-foundation/railbook/lib/reservation"
	"github.com/bureau-foundation/railbook/lib/session"
)

// handle runs one request and returns its reply.
func (c *connection) handle(envelope protocol.Envelope) protocol.Envelope {
	var (
		reply string
		err   error
	)
	switch envelope.Type {
	case protocol.TypeConnect:
		reply, err = c.connect(envelope)
	case protocol.TypeQuery:
		reply, err = c.query(envelope)
	case protocol.TypeReserve:
		reply, err = c.reserve(envelope)
	case protocol.TypeConfirm:
		reply, err = c.confirm(envelope)
	case protocol.TypeCancel:
		reply, err = c.cancel(envelope)
	case protocol.TypeAddStock:
		reply, err = c.addStock(envelope)
	case protocol.TypeStatus:
		reply = c.status()
	default:
		err = fmt.Errorf("%w: unsupported type %q", protocol.ErrMalformedEnvelope, envelope.Type)
	}

	if err != nil {
		c.logger.Debug("request failed",
			"type", envelope.Type,
			"terminal", c.identity(envelope),
			"class", reservation.Classify(err),
			"error", err,
		)
		return protocol.Failure(err.Error())
	}
	c.logger.Debug("request handled",
		"type", envelope.Type,
		"terminal", c.identity(envelope),
	)
	return protocol.Success(reply)
}

// connect registers this connection as the push target for the
// envelope's origin. Connecting again under another id moves the
// registration.
func (c *connection) connect(envelope protocol.Envelope) (string, error) {
	terminalID := strings.TrimSpace(envelope.Origin)
	if terminalID == "" || strings.ContainsAny(terminalID, ",\n") {
		return "", fmt.Errorf("%w: invalid origin %q", protocol.ErrMalformedEnvelope, envelope.Origin)
	}
	if c.session != nil && c.session.TerminalID() == terminalID {
		return "connected as " + terminalID, nil
	}
	c.endSession()

	c.session = session.New(terminalID, c.conn, c.dispatcher.logger)
	c.dispatcher.directory.Register(c.session)
	c.logger = c.logger.With("terminal", terminalID)
	return "connected as " + terminalID, nil
}

func (c *connection) query(envelope protocol.Envelope) (string, error) {
	date := strings.TrimSpace(envelope.Payload)
	if date == "" {
		date = c.dispatcher.authority.Today()
	}
	views, err := c.dispatcher.authority.Query(date)
	if err != nil {
		return "", err
	}
	return FormatAvailability(views), nil
}

func (c *connection) reserve(envelope protocol.Envelope) (string, error) {
	request, err := protocol.ParseReserve(envelope.Payload)
	if err != nil {
		return "", err
	}
	terminalID := c.identity(envelope)
	if terminalID == "" {
		return "", fmt.Errorf("%w: reservation needs an origin terminal", protocol.ErrMalformedEnvelope)
	}
	order, err := c.dispatcher.authority.Reserve(reservation.ReserveRequest{
		TerminalID: terminalID,
		TrainID:    request.TrainID,
		Date:       request.Date,
		SeatClass:  request.SeatClass,
		Count:      request.Count,
	})
	if err != nil {
		return "", err
	}
	return FormatReserved(order, c.dispatcher.authority.HoldTimeout()), nil
}

func (c *connection) confirm(envelope protocol.Envelope) (string, error) {
	orderID, err := protocol.ParseOrderID(envelope.Payload)
	if err != nil {
		return "", err
	}
	order, err := c.dispatcher.authority.Confirm(orderID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("order %s paid", order.ID), nil
}

func (c *connection) cancel(envelope protocol.Envelope) (string, error) {
	orderID, err := protocol.ParseOrderID(envelope.Payload)
	if err != nil {
		return "", err
	}
	order, err := c.dispatcher.authority.Cancel(orderID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("order %s cancelled, %d seats released", order.ID, order.Count), nil
}

func (c *connection) addStock(envelope protocol.Envelope) (string, error) {
	request, err := protocol.ParseAddStock(envelope.Payload)
	if err != nil {
		return "", err
	}
	err = c.dispatcher.authority.AddStock(reservation.StockRequest{
		TrainID:     request.TrainID,
		Origin:      request.Origin,
		Destination: request.Destination,
		Date:        request.Date,
		SeatClass:   request.SeatClass,
		Count:       request.Count,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("train %s %s %s +%d", request.TrainID, request.Date, request.SeatClass, request.Count), nil
}

func (c *connection) status() string {
	d := c.dispatcher
	return FormatStatus(StatusReport{
		Uptime:    d.clock.Now().Sub(d.startedAt),
		Terminals: d.directory.Terminals(),
		Stats:     d.authority.Stats(),
	})
}
