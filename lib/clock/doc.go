// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets the reservation authority and the server read time
// through an interface so tests can control it.
//
// Production wiring passes Real(). Tests pass Fake(epoch) and move time
// explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
//	authority := reservation.New(c, notifier, logger)
//	go authority.Run(ctx)
//	c.WaitForTimers(1)        // the sweep ticker is registered
//	c.Advance(61 * time.Second) // pending holds are now stale
//
// WaitForTimers closes the race between a goroutine registering its
// ticker and the test advancing the clock past it.
package clock
