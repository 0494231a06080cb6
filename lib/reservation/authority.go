// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reservation

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/railbook/lib/clock"
	"github.com/bureau-foundation/railbook/lib/inventory"
)

const (
	DefaultHoldTimeout   = 60 * time.Second
	DefaultSweepInterval = time.Second
	DefaultMaxTickets    = 5
)

// Notifier is told about every order status change, after the
// authority's lock has been released. Implementations must not block
// for long: the reclamation loop calls OrderChanged inline.
type Notifier interface {
	OrderChanged(order Order)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Order)

func (f NotifierFunc) OrderChanged(order Order) { f(order) }

// Authority owns the inventory and the order table.
type Authority struct {
	clock    clock.Clock
	notifier Notifier
	logger   *slog.Logger

	holdTimeout   time.Duration
	sweepInterval time.Duration
	maxTickets    int
	newID         func() string

	mu        sync.RWMutex
	inventory *inventory.Store
	orders    map[string]*Order
}

// Option configures an Authority.
type Option func(*Authority)

// WithHoldTimeout sets how long an order may stay PENDING.
func WithHoldTimeout(d time.Duration) Option {
	return func(a *Authority) {
		if d > 0 {
			a.holdTimeout = d
		}
	}
}

// WithSweepInterval sets the reclamation cadence.
func WithSweepInterval(d time.Duration) Option {
	return func(a *Authority) {
		if d > 0 {
			a.sweepInterval = d
		}
	}
}

// WithMaxTickets sets the largest ticket count one order may hold.
func WithMaxTickets(n int) Option {
	return func(a *Authority) {
		if n > 0 {
			a.maxTickets = n
		}
	}
}

// WithIDGenerator replaces the order id source. Generated ids that
// collide with an existing order are drawn again.
func WithIDGenerator(generate func() string) Option {
	return func(a *Authority) {
		if generate != nil {
			a.newID = generate
		}
	}
}

// New returns an Authority with an empty inventory. A nil notifier
// discards notifications.
func New(clk clock.Clock, notifier Notifier, logger *slog.Logger, opts ...Option) *Authority {
	if notifier == nil {
		notifier = NotifierFunc(func(Order) {})
	}
	a := &Authority{
		clock:         clk,
		notifier:      notifier,
		logger:        logger,
		holdTimeout:   DefaultHoldTimeout,
		sweepInterval: DefaultSweepInterval,
		maxTickets:    DefaultMaxTickets,
		newID:         shortUUID,
		inventory:     inventory.NewStore(),
		orders:        make(map[string]*Order),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// shortUUID returns the first eight hex digits of a random UUID, short
// enough for a terminal operator to type.
func shortUUID() string {
	return uuid.NewString()[:8]
}

// HoldTimeout returns the configured PENDING lifetime.
func (a *Authority) HoldTimeout() time.Duration {
	return a.holdTimeout
}

// Today returns the authority's current date in inventory.DateLayout.
func (a *Authority) Today() string {
	return a.clock.Now().Format(inventory.DateLayout)
}

// ReserveRequest asks for Count seats on one train, date and class.
type ReserveRequest struct {
	TerminalID string
	TrainID    string
	Date       string
	SeatClass  string
	Count      int
}

// Reserve takes seats out of the inventory and records a PENDING order
// owned by request.TerminalID. On error nothing changes.
func (a *Authority) Reserve(request ReserveRequest) (Order, error) {
	if request.Count < 1 || request.Count > a.maxTickets {
		return Order{}, fmt.Errorf("%w: %d (allowed 1-%d)", ErrInvalidCount, request.Count, a.maxTickets)
	}
	if !inventory.ValidDate(request.Date) {
		return Order{}, fmt.Errorf("%w: %q", ErrInvalidDate, request.Date)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.inventory.Reserve(request.TrainID, request.Date, request.SeatClass, request.Count); err != nil {
		return Order{}, err
	}

	now := a.clock.Now()
	order := &Order{
		ID:         a.uniqueIDLocked(),
		TerminalID: request.TerminalID,
		TrainID:    request.TrainID,
		Date:       request.Date,
		SeatClass:  request.SeatClass,
		Count:      request.Count,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	a.orders[order.ID] = order

	a.logger.Info("seats reserved",
		"order_id", order.ID,
		"terminal", order.TerminalID,
		"train", order.TrainID,
		"date", order.Date,
		"seat_class", order.SeatClass,
		"count", order.Count,
	)
	return *order, nil
}

func (a *Authority) uniqueIDLocked() string {
	for {
		id := a.newID()
		if _, taken := a.orders[id]; !taken {
			return id
		}
	}
}

// Confirm marks a PENDING order PAID. The seats were already taken at
// reservation time, so inventory does not change.
func (a *Authority) Confirm(orderID string) (Order, error) {
	return a.transition(orderID, StatusPaid)
}

// Cancel marks a PENDING order CANCELLED and returns its seats.
func (a *Authority) Cancel(orderID string) (Order, error) {
	return a.transition(orderID, StatusCancelled)
}

// expire marks a PENDING order EXPIRED and returns its seats. Only the
// reclamation pass calls it.
func (a *Authority) expire(orderID string) (Order, error) {
	return a.transition(orderID, StatusExpired)
}

// transition moves a PENDING order to a terminal status, releases its
// seats unless the order was paid, and notifies the owner outside the
// lock.
func (a *Authority) transition(orderID string, to Status) (Order, error) {
	a.mu.Lock()
	order, exists := a.orders[orderID]
	if !exists {
		a.mu.Unlock()
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if order.Status != StatusPending {
		snapshot := *order
		a.mu.Unlock()
		return snapshot, fmt.Errorf("%w: %s is %s", ErrOrderNotPending, orderID, snapshot.Status)
	}

	order.Status = to
	order.UpdatedAt = a.clock.Now()
	if to != StatusPaid {
		a.inventory.Release(order.TrainID, order.Date, order.SeatClass, order.Count)
	}
	snapshot := *order
	a.mu.Unlock()

	a.logger.Info("order status changed",
		"order_id", snapshot.ID,
		"terminal", snapshot.TerminalID,
		"status", snapshot.Status,
	)
	a.notifier.OrderChanged(snapshot)
	return snapshot, nil
}

// StockRequest adds Count seats to one bucket, creating the train if it
// is new.
type StockRequest struct {
	TrainID     string
	Origin      string
	Destination string
	Date        string
	SeatClass   string
	Count       int
}

// AddStock applies a StockRequest. Repeating a request adds the seats
// again; it never overwrites a bucket.
func (a *Authority) AddStock(request StockRequest) error {
	if request.TrainID == "" || request.SeatClass == "" {
		return fmt.Errorf("%w: train and seat class are required", ErrInvalidStock)
	}
	if request.Origin == "" || request.Destination == "" {
		return fmt.Errorf("%w: origin and destination are required", ErrInvalidStock)
	}
	if request.Count <= 0 {
		return fmt.Errorf("%w: count must be positive, got %d", ErrInvalidStock, request.Count)
	}
	if !inventory.ValidDate(request.Date) {
		return fmt.Errorf("%w: %q", ErrInvalidDate, request.Date)
	}

	a.mu.Lock()
	current, _ := a.inventory.Available(request.TrainID, request.Date, request.SeatClass)
	held := a.heldLocked(request.TrainID, request.Date, request.SeatClass)
	// Pending seats come back through Release, so they count against
	// the headroom too.
	if request.Count > math.MaxInt-current-held {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s %s %s cannot take %d more seats (%d available, %d pending)",
			ErrInvalidStock, request.TrainID, request.Date, request.SeatClass, request.Count, current, held)
	}
	a.inventory.Add(request.TrainID, request.Origin, request.Destination, request.Date, request.SeatClass, request.Count)
	available := current + request.Count
	a.mu.Unlock()

	a.logger.Info("stock added",
		"train", request.TrainID,
		"date", request.Date,
		"seat_class", request.SeatClass,
		"count", request.Count,
		"available", available,
	)
	return nil
}

// heldLocked sums the seats of PENDING orders on one bucket.
func (a *Authority) heldLocked(trainID, date, seatClass string) int {
	held := 0
	for _, order := range a.orders {
		if order.Status == StatusPending && order.TrainID == trainID &&
			order.Date == date && order.SeatClass == seatClass {
			held += order.Count
		}
	}
	return held
}

// Query returns every train's availability on date, sorted by train id.
func (a *Authority) Query(date string) ([]inventory.TrainView, error) {
	if !inventory.ValidDate(date) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.inventory.Snapshot(date), nil
}

// Available returns the count of one bucket and whether it exists.
func (a *Authority) Available(trainID, date, seatClass string) (int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.inventory.Available(trainID, date, seatClass)
}

// Order returns a copy of one order.
func (a *Authority) Order(orderID string) (Order, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	order, exists := a.orders[orderID]
	if !exists {
		return Order{}, false
	}
	return *order, true
}

// Orders returns copies of every order, oldest first.
func (a *Authority) Orders() []Order {
	a.mu.RLock()
	orders := make([]Order, 0, len(a.orders))
	for _, order := range a.orders {
		orders = append(orders, *order)
	}
	a.mu.RUnlock()

	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
	return orders
}

// Stats counts trains and orders by status.
type Stats struct {
	Trains    int
	Pending   int
	Paid      int
	Cancelled int
	Expired   int
}

// Stats returns a consistent count of trains and orders.
func (a *Authority) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := Stats{Trains: a.inventory.Len()}
	for _, order := range a.orders {
		switch order.Status {
		case StatusPending:
			stats.Pending++
		case StatusPaid:
			stats.Paid++
		case StatusCancelled:
			stats.Cancelled++
		case StatusExpired:
			stats.Expired++
		}
	}
	return stats
}
