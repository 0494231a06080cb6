// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session maps terminal ids to live connections and delivers
// server-initiated pushes to them.
//
// Pushes are deliver-or-drop. [Directory.Push] never blocks: it hands
// the envelope to the session's bounded push buffer, and a writer
// goroutine owned by the session drains the buffer onto the wire. A
// terminal that is offline, or whose buffer is full because it stopped
// reading, loses the push and must rediscover state with a query.
//
// Replies and pushes share the connection's write lock in
// [protocol.Conn], so a push can never land in the middle of a reply.
package session
