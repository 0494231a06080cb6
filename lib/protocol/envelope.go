// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// Type tags an envelope.
type Type string

// Request types sent by terminals.
const (
	TypeConnect    Type = "CONNECT"
	TypeDisconnect Type = "DISCONNECT"
	TypeQuery      Type = "QUERY"
	TypeReserve    Type = "RESERVE"
	TypeConfirm    Type = "CONFIRM"
	TypeCancel     Type = "CANCEL"
	TypeAddStock   Type = "ADD_STOCK"
	TypeStatus     Type = "STATUS"
)

// Types sent by the server.
const (
	TypeSuccess     Type = "SUCCESS"
	TypeFailure     Type = "FAILURE"
	TypeOrderUpdate Type = "ORDER_UPDATE"
)

// ServerOrigin is the origin id on every server-generated envelope.
const ServerOrigin = "Server"

// Envelope is the unit of every request, response and push.
type Envelope struct {
	Origin  string `cbor:"origin"`
	Type    Type   `cbor:"type"`
	Payload string `cbor:"payload"`
}

// IsRequest reports whether t is one of the request types a terminal
// may send.
func (t Type) IsRequest() bool {
	switch t {
	case TypeConnect, TypeDisconnect, TypeQuery, TypeReserve,
		TypeConfirm, TypeCancel, TypeAddStock, TypeStatus:
		return true
	}
	return false
}

// Success builds a server success response.
func Success(payload string) Envelope {
	return Envelope{Origin: ServerOrigin, Type: TypeSuccess, Payload: payload}
}

// Failure builds a server failure response.
func Failure(payload string) Envelope {
	return Envelope{Origin: ServerOrigin, Type: TypeFailure, Payload: payload}
}

// OrderUpdate builds the push sent to an order's owner when the order
// changes status.
func OrderUpdate(orderID, status string) Envelope {
	return Envelope{Origin: ServerOrigin, Type: TypeOrderUpdate, Payload: FormatOrderUpdate(orderID, status)}
}
