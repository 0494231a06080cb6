// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package timetable loads seed inventory for the reservation authority.
//
// Timetables are authored as JSONC files (JSON extended with comments
// and trailing commas). Allocation dates may be absolute (YYYY-MM-DD)
// or relative to the day the timetable is applied: "today",
// "tomorrow", or "+N" for N days ahead. A built-in demonstration
// timetable is embedded for servers started without one.
//
// The typical flow:
//
//  1. ReadFile, Parse or Builtin: JSONC bytes → Timetable
//  2. Apply: resolve dates and add every allocation through AddStock
package timetable

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/railbook/lib/inventory"
	"github.com/bureau-foundation/railbook/lib/reservation"
)

//go:embed default.jsonc
var builtin []byte

// ErrInvalidDate reports an allocation date that is neither a calendar
// date nor a relative date.
var ErrInvalidDate = errors.New("invalid timetable date")

// Timetable is a list of trains with their seat allocations.
type Timetable struct {
	Trains []Train `json:"trains"`
}

// Train is one train's route and seat allocations.
type Train struct {
	ID          string       `json:"id"`
	Origin      string       `json:"origin"`
	Destination string       `json:"destination"`
	Seats       []Allocation `json:"seats"`
}

// Allocation adds Count seats of one class on one date.
type Allocation struct {
	Date      string `json:"date"`
	SeatClass string `json:"class"`
	Count     int    `json:"count"`
}

// Parse strips JSONC comments and trailing commas from data, then
// decodes the timetable. Unknown fields are rejected so a misspelled
// key does not silently drop seats.
func Parse(data []byte) (*Timetable, error) {
	stripped := jsonc.ToJSON(data)

	decoder := json.NewDecoder(bytes.NewReader(stripped))
	decoder.DisallowUnknownFields()

	var timetable Timetable
	if err := decoder.Decode(&timetable); err != nil {
		return nil, fmt.Errorf("parsing timetable: %w", err)
	}
	return &timetable, nil
}

// ReadFile reads and parses a JSONC timetable file.
func ReadFile(path string) (*Timetable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	timetable, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return timetable, nil
}

// Builtin returns the embedded demonstration timetable: G101, D202,
// K303 and T888 over today and tomorrow.
func Builtin() *Timetable {
	timetable, err := Parse(builtin)
	if err != nil {
		panic("timetable: embedded default does not parse: " + err.Error())
	}
	return timetable
}

// ResolveDate turns an allocation date into inventory.DateLayout,
// resolving relative dates against today.
func ResolveDate(date string, today time.Time) (string, error) {
	date = strings.TrimSpace(date)
	switch {
	case date == "today":
		return today.Format(inventory.DateLayout), nil
	case date == "tomorrow":
		return today.AddDate(0, 0, 1).Format(inventory.DateLayout), nil
	case strings.HasPrefix(date, "+"):
		days, err := strconv.Atoi(date[1:])
		if err != nil || days < 0 {
			return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}
		return today.AddDate(0, 0, days).Format(inventory.DateLayout), nil
	case inventory.ValidDate(date):
		return date, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
}

// Stocker receives resolved allocations. *reservation.Authority
// implements it.
type Stocker interface {
	AddStock(request reservation.StockRequest) error
}

// Apply resolves every allocation against today and adds it through
// stocker, in file order. It stops at the first failure and returns how
// many allocations were applied before it.
func (t *Timetable) Apply(stocker Stocker, today time.Time) (int, error) {
	applied := 0
	for _, train := range t.Trains {
		for _, allocation := range train.Seats {
			date, err := ResolveDate(allocation.Date, today)
			if err != nil {
				return applied, fmt.Errorf("train %s: %w", train.ID, err)
			}
			err = stocker.AddStock(reservation.StockRequest{
				TrainID:     train.ID,
				Origin:      train.Origin,
				Destination: train.Destination,
				Date:        date,
				SeatClass:   allocation.SeatClass,
				Count:       allocation.Count,
			})
			if err != nil {
				return applied, fmt.Errorf("train %s %s %s: %w", train.ID, date, allocation.SeatClass, err)
			}
			applied++
		}
	}
	return applied, nil
}
