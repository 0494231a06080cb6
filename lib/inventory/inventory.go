// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package inventory tracks available seats per train, travel date and
// seat class.
//
// A Store is not safe for concurrent use. Its owner (the reservation
// authority) serializes every call, which is what makes Reserve's
// check-then-decrement atomic with respect to other reservations.
package inventory

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DateLayout is the travel date format used throughout the protocol.
const DateLayout = "2006-01-02"

var (
	ErrTrainNotFound     = errors.New("train not found")
	ErrNoSchedule        = errors.New("no schedule for that date and seat class")
	ErrInsufficientSeats = errors.New("insufficient seats")
)

// Bucket identifies one independently counted pool of seats on a train.
type Bucket struct {
	Date      string
	SeatClass string
}

// Train is a train's route and its seat buckets.
type Train struct {
	ID          string
	Origin      string
	Destination string

	buckets map[Bucket]int
}

// Store holds every known train.
type Store struct {
	trains map[string]*Train
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{trains: make(map[string]*Train)}
}

// ValidDate reports whether date is a calendar date in DateLayout.
func ValidDate(date string) bool {
	_, err := time.Parse(DateLayout, date)
	return err == nil
}

// Add increases the (date, class) bucket of trainID by n, creating the
// train and the bucket as needed. The route of an existing train is not
// changed. There is no upper bound on a bucket.
func (s *Store) Add(trainID, origin, destination, date, seatClass string, n int) {
	train, exists := s.trains[trainID]
	if !exists {
		train = &Train{
			ID:          trainID,
			Origin:      origin,
			Destination: destination,
			buckets:     make(map[Bucket]int),
		}
		s.trains[trainID] = train
	}
	train.buckets[Bucket{Date: date, SeatClass: seatClass}] += n
}

// Reserve removes n seats from a bucket if at least n are available.
// On error nothing changes.
func (s *Store) Reserve(trainID, date, seatClass string, n int) error {
	train, exists := s.trains[trainID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrTrainNotFound, trainID)
	}
	bucket := Bucket{Date: date, SeatClass: seatClass}
	available, scheduled := train.buckets[bucket]
	if !scheduled {
		return fmt.Errorf("%w: %s %s %s", ErrNoSchedule, trainID, date, seatClass)
	}
	if available < n {
		return fmt.Errorf("%w: %s %s %s has %d, requested %d", ErrInsufficientSeats, trainID, date, seatClass, available, n)
	}
	train.buckets[bucket] = available - n
	return nil
}

// Release returns n seats to a bucket. A train that has disappeared is
// ignored; trains are never removed, so this only happens for seats that
// were never reserved through this store.
func (s *Store) Release(trainID, date, seatClass string, n int) {
	train, exists := s.trains[trainID]
	if !exists {
		return
	}
	train.buckets[Bucket{Date: date, SeatClass: seatClass}] += n
}

// Available returns the count of one bucket and whether it exists.
func (s *Store) Available(trainID, date, seatClass string) (int, bool) {
	train, exists := s.trains[trainID]
	if !exists {
		return 0, false
	}
	count, scheduled := train.buckets[Bucket{Date: date, SeatClass: seatClass}]
	return count, scheduled
}

// Query returns a copy of the class→count map of trainID on date. The
// boolean is false when the train has no bucket on that date.
func (s *Store) Query(trainID, date string) (map[string]int, bool) {
	train, exists := s.trains[trainID]
	if !exists {
		return nil, false
	}
	return train.classesOn(date)
}

func (t *Train) classesOn(date string) (map[string]int, bool) {
	var classes map[string]int
	for bucket, count := range t.buckets {
		if bucket.Date != date {
			continue
		}
		if classes == nil {
			classes = make(map[string]int)
		}
		classes[bucket.SeatClass] = count
	}
	return classes, classes != nil
}

// TrainView is an immutable snapshot of one train on one date.
type TrainView struct {
	ID          string
	Origin      string
	Destination string

	// Classes maps seat class to available count. Nil when Scheduled
	// is false.
	Classes   map[string]int
	Scheduled bool
}

// Snapshot returns every train's availability on date, sorted by id.
func (s *Store) Snapshot(date string) []TrainView {
	views := make([]TrainView, 0, len(s.trains))
	for _, train := range s.trains {
		classes, scheduled := train.classesOn(date)
		views = append(views, TrainView{
			ID:          train.ID,
			Origin:      train.Origin,
			Destination: train.Destination,
			Classes:     classes,
			Scheduled:   scheduled,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// Len returns the number of trains.
func (s *Store) Len() int {
	return len(s.trains)
}
