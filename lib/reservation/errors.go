// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reservation

import (
	"errors"

	"github.com/bureau-foundation/railbook/lib/inventory"
	"github.com/bureau-foundation/railbook/lib/protocol"
)

var (
	ErrInvalidCount    = errors.New("invalid ticket count")
	ErrInvalidDate     = errors.New("invalid travel date")
	ErrInvalidStock    = errors.New("invalid stock request")
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotPending = errors.New("order is not pending")
)

// Class groups errors by how a caller should react to them.
type Class int

const (
	// ClassInternal is anything not listed below.
	ClassInternal Class = iota
	// ClassValidation is a malformed or out-of-range request.
	ClassValidation
	// ClassNotFound names a train, schedule or order that does not exist.
	ClassNotFound
	// ClassConflict is a well-formed request the current state cannot
	// satisfy.
	ClassConflict
)

func (c Class) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassNotFound:
		return "not_found"
	case ClassConflict:
		return "conflict"
	}
	return "internal"
}

// Classify maps an error returned by this package, the inventory store
// or the protocol parsers to its Class.
func Classify(err error) Class {
	switch {
	case errors.Is(err, ErrInvalidCount),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidStock),
		errors.Is(err, protocol.ErrMalformedPayload),
		errors.Is(err, protocol.ErrMalformedEnvelope):
		return ClassValidation
	case errors.Is(err, inventory.ErrTrainNotFound),
		errors.Is(err, inventory.ErrNoSchedule),
		errors.Is(err, ErrOrderNotFound):
		return ClassNotFound
	case errors.Is(err, inventory.ErrInsufficientSeats),
		errors.Is(err, ErrOrderNotPending):
		return ClassConflict
	}
	return ClassInternal
}
