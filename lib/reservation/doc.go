// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package reservation is the reservation authority: it owns the seat
// inventory and the order table and is the only code that mutates
// either.
//
// # Order lifecycle
//
//	PENDING --Confirm--> PAID
//	PENDING --Cancel---> CANCELLED
//	PENDING --timeout--> EXPIRED
//
// PAID, CANCELLED and EXPIRED are terminal. Seats leave the inventory
// when an order is reserved and return exactly once, on cancel or
// expiry. Confirm does not touch inventory.
//
// # Concurrency
//
// Every mutation runs under one write lock per Authority, so two
// reservations can never both observe the same free seats. Query, Stats
// and the order listings take the read lock and see a consistent
// snapshot. Notifications are delivered after the lock is released.
//
// # Reclamation
//
// Run ticks every sweep interval (one second by default). Each tick
// expires PENDING orders older than the hold timeout (sixty seconds by
// default) and returns their seats. A confirm or cancel that wins the
// race simply leaves nothing to expire.
//
// # Notifications
//
// The Notifier is told about every status change. Delivery is the
// notifier's concern; the authority does not retry or record whether
// the owner heard about it. A terminal that was offline when its order
// expired has to query again to learn the new state.
package reservation
