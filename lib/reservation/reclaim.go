// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reservation

import (
	"context"
	"fmt"
	"sort"
)

// Run sweeps stale PENDING orders every sweep interval until ctx is
// cancelled. The ticker is the loop's only blocking point besides the
// authority's lock.
func (a *Authority) Run(ctx context.Context) {
	ticker := a.clock.NewTicker(a.sweepInterval)
	defer ticker.Stop()

	a.logger.Info("reclamation loop started",
		"sweep_interval", a.sweepInterval,
		"hold_timeout", a.holdTimeout,
	)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("reclamation loop stopped")
			return
		case <-ticker.C:
			a.Sweep()
		}
	}
}

// Sweep expires every PENDING order older than the hold timeout and
// returns how many it expired. Candidates are collected under the read
// lock and expired one at a time, so a confirm or cancel may still win
// for any of them; that order is skipped.
func (a *Authority) Sweep() int {
	now := a.clock.Now()

	a.mu.RLock()
	var stale []string
	for id, order := range a.orders {
		if order.Status == StatusPending && now.Sub(order.CreatedAt) > a.holdTimeout {
			stale = append(stale, id)
		}
	}
	a.mu.RUnlock()

	sort.Strings(stale)
	expired := 0
	for _, orderID := range stale {
		order, err := a.expireOne(orderID)
		if err != nil {
			a.logger.Warn("order not expired",
				"order_id", orderID,
				"error", err,
			)
			continue
		}
		expired++
		a.logger.Info("hold expired",
			"order_id", order.ID,
			"terminal", order.TerminalID,
			"released", order.Count,
		)
	}
	return expired
}

// expireOne expires one order, turning a panic in the notifier into an
// error so the rest of the pass still runs.
func (a *Authority) expireOne(orderID string) (order Order, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("expiring %s: panic: %v", orderID, recovered)
		}
	}()
	return a.expire(orderID)
}
