// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service runs the listening side of a stream protocol: bind
// a TCP or Unix socket, accept connections, hand each one to a
// ConnHandler on its own goroutine, and drain everything on shutdown.
//
// The server knows nothing about what flows over a connection.
// Connections are long-lived, so shutdown closes every live connection
// to unblock handlers parked in Read, then waits for them to return.
package service
