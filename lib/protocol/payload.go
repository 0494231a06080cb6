// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedPayload reports a payload that does not have the shape
// its type requires: wrong field count, empty field, or a non-numeric
// count.
var ErrMalformedPayload = errors.New("malformed payload")

// ReservePayload is a parsed RESERVE request:
// "trainId,count,date,seatClass".
type ReservePayload struct {
	TrainID   string
	Count     int
	Date      string
	SeatClass string
}

// StockPayload is a parsed ADD_STOCK request:
// "trainId,origin,destination,date,seatClass,count".
type StockPayload struct {
	TrainID     string
	Origin      string
	Destination string
	Date        string
	SeatClass   string
	Count       int
}

// ParseReserve decodes a RESERVE payload.
func ParseReserve(payload string) (ReservePayload, error) {
	fields, err := splitFields(payload, "trainId", "count", "date", "seatClass")
	if err != nil {
		return ReservePayload{}, err
	}
	count, err := parseCount(fields[1])
	if err != nil {
		return ReservePayload{}, err
	}
	return ReservePayload{
		TrainID:   fields[0],
		Count:     count,
		Date:      fields[2],
		SeatClass: fields[3],
	}, nil
}

// FormatReserve is the inverse of ParseReserve.
func FormatReserve(p ReservePayload) string {
	return strings.Join([]string{p.TrainID, strconv.Itoa(p.Count), p.Date, p.SeatClass}, ",")
}

// ParseAddStock decodes an ADD_STOCK payload.
func ParseAddStock(payload string) (StockPayload, error) {
	fields, err := splitFields(payload, "trainId", "origin", "destination", "date", "seatClass", "count")
	if err != nil {
		return StockPayload{}, err
	}
	count, err := parseCount(fields[5])
	if err != nil {
		return StockPayload{}, err
	}
	return StockPayload{
		TrainID:     fields[0],
		Origin:      fields[1],
		Destination: fields[2],
		Date:        fields[3],
		SeatClass:   fields[4],
		Count:       count,
	}, nil
}

// FormatAddStock is the inverse of ParseAddStock.
func FormatAddStock(p StockPayload) string {
	return strings.Join([]string{p.TrainID, p.Origin, p.Destination, p.Date, p.SeatClass, strconv.Itoa(p.Count)}, ",")
}

// ParseOrderID decodes a CONFIRM or CANCEL payload.
func ParseOrderID(payload string) (string, error) {
	orderID := strings.TrimSpace(payload)
	if orderID == "" {
		return "", fmt.Errorf("%w: missing order id", ErrMalformedPayload)
	}
	if strings.Contains(orderID, ",") {
		return "", fmt.Errorf("%w: order id %q contains a comma", ErrMalformedPayload, orderID)
	}
	return orderID, nil
}

// FormatOrderUpdate renders a push payload: "orderId,STATUS".
func FormatOrderUpdate(orderID, status string) string {
	return orderID + "," + status
}

// ParseOrderUpdate decodes a push payload into order id and status.
func ParseOrderUpdate(payload string) (orderID, status string, err error) {
	fields, err := splitFields(payload, "orderId", "status")
	if err != nil {
		return "", "", err
	}
	return fields[0], fields[1], nil
}

// splitFields splits payload on commas, trims each field, and requires
// exactly one non-empty field per name.
func splitFields(payload string, names ...string) ([]string, error) {
	fields := strings.Split(payload, ",")
	if len(fields) != len(names) {
		return nil, fmt.Errorf("%w: want %d fields (%s), got %d",
			ErrMalformedPayload, len(names), strings.Join(names, ","), len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
		if fields[i] == "" {
			return nil, fmt.Errorf("%w: empty %s", ErrMalformedPayload, names[i])
		}
	}
	return fields, nil
}

func parseCount(field string) (int, error) {
	count, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("%w: count %q is not a number", ErrMalformedPayload, field)
	}
	return count, nil
}
