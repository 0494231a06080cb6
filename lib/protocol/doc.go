// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the envelope exchanged between terminals
// and the reservation server, and the stream codec that carries it.
//
// Every request, response and push is an [Envelope]: an origin
// terminal id, a [Type] tag and an opaque text payload. On the wire a
// connection is a sequence of CBOR maps, one per envelope:
//
//	{"origin": "terminal-1", "type": "RESERVE", "payload": "K303,2,2026-01-16,硬座"}
//
// CBOR items are self-delimiting, so no length prefix is needed.
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2): the same
// envelope always produces the same bytes.
//
// Requests and responses are strictly 1:1 and ordered on a connection.
// Pushes ([TypeOrderUpdate]) may arrive between them at any time;
// [Conn] serializes writes so a push never interleaves with a reply.
//
// Positional payloads are comma-separated. [ParseReserve],
// [ParseAddStock], [ParseOrderID] and [ParseOrderUpdate] decode them and
// report structural problems as [ErrMalformedPayload]. Range and
// existence checks belong to the reservation authority.
package protocol
