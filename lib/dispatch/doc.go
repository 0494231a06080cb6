// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch binds the reservation authority to the wire
// protocol.
//
// A [Dispatcher] serves one connection per [Dispatcher.ServeConn] call:
// it reads an envelope, runs the matching request against the
// authority, and writes exactly one reply before reading the next.
// Requests on one connection are therefore answered in order.
//
// A malformed envelope or payload gets a FAILURE reply and the loop
// keeps reading. A broken stream (transport error, undecodable CBOR)
// or a DISCONNECT ends the loop: the terminal's session is unregistered
// and the connection closed. Orders the terminal holds are left alone;
// unpaid ones are reclaimed by the authority's expiry loop.
//
// [Pusher] is the authority's notifier: it turns order status changes
// into ORDER_UPDATE pushes through the session directory.
package dispatch
