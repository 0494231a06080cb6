// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reservation

import (
	"fmt"
	"time"
)

// Status is an order's position in its lifecycle.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// Order is a reservation of seats by one terminal. Values handed out by
// the Authority are copies.
type Order struct {
	ID         string
	TerminalID string
	TrainID    string
	Date       string
	SeatClass  string
	Count      int
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HoldsSeats reports whether the order's seats are currently out of the
// inventory.
func (o Order) HoldsSeats() bool {
	return o.Status == StatusPending || o.Status == StatusPaid
}

func (o Order) String() string {
	return fmt.Sprintf("order %s: %s %s %s x%d for %s (%s)",
		o.ID, o.TrainID, o.Date, o.SeatClass, o.Count, o.TerminalID, o.Status)
}
