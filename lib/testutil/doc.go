// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by railbook tests.
//
// [RequireReceive], [RequireNoReceive] and [RequireClosed] wrap the
// select-with-timeout pattern so tests never call time.After directly.
// They are the only place the test suite waits on the wall clock.
//
// [SocketDir] returns a short directory under /tmp for Unix sockets,
// whose paths are limited to 108 bytes.
//
// [UniqueID] hands out distinct terminal and order identifiers.
//
// Every helper calls t.Fatalf on failure.
package testutil
