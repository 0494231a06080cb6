// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"github.com/bureau-foundation/railbook/lib/protocol"
	"github.com/bureau-foundation/railbook/lib/reservation"
	"github.com/bureau-foundation/railbook/lib/session"
)

// Pusher sends each order status change to the order's owner as an
// ORDER_UPDATE push. Delivery is best effort.
type Pusher struct {
	directory *session.Directory
}

// NewPusher returns a Pusher over directory.
func NewPusher(directory *session.Directory) *Pusher {
	return &Pusher{directory: directory}
}

// OrderChanged implements reservation.Notifier.
func (p *Pusher) OrderChanged(order reservation.Order) {
	p.directory.Push(order.TerminalID, protocol.OrderUpdate(order.ID, string(order.Status)))
}
