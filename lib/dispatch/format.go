// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bureau-foundation/railbook/lib/inventory"
	"github.com/bureau-foundation/railbook/lib/reservation"
)

// FormatAvailability renders a QUERY reply: one line per train,
//
//	G101 (北京-上海) {一等座=50, 二等座=200}
//	K303 (西安-成都) [no schedule]
//
// with seat classes in sorted order.
func FormatAvailability(views []inventory.TrainView) string {
	lines := make([]string, 0, len(views))
	for _, view := range views {
		lines = append(lines, fmt.Sprintf("%s (%s-%s) %s",
			view.ID, view.Origin, view.Destination, formatClasses(view)))
	}
	return strings.Join(lines, "\n")
}

func formatClasses(view inventory.TrainView) string {
	if !view.Scheduled {
		return "[no schedule]"
	}
	classes := make([]string, 0, len(view.Classes))
	for class := range view.Classes {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	var builder strings.Builder
	builder.WriteByte('{')
	for i, class := range classes {
		if i > 0 {
			builder.WriteString(", ")
		}
		fmt.Fprintf(&builder, "%s=%d", class, view.Classes[class])
	}
	builder.WriteByte('}')
	return builder.String()
}

// FormatReserved renders a RESERVE reply:
//
//	reserved order 3f9a0c1e: K303 2026-01-15 硬座 x2 for terminal-a (PENDING), pay within 1m0s
func FormatReserved(order reservation.Order, holdTimeout time.Duration) string {
	return fmt.Sprintf("reserved %s, pay within %s", order, holdTimeout)
}

// ReservedOrderID extracts the order id from a FormatReserved reply.
func ReservedOrderID(reply string) (string, bool) {
	rest, found := strings.CutPrefix(reply, "reserved order ")
	if !found {
		return "", false
	}
	orderID, _, found := strings.Cut(rest, ":")
	if !found || orderID == "" {
		return "", false
	}
	return orderID, true
}

// StatusReport is the content of a STATUS reply.
type StatusReport struct {
	Uptime    time.Duration
	Terminals []string
	Stats     reservation.Stats
}

// FormatStatus renders a STATUS reply as key=value lines.
func FormatStatus(report StatusReport) string {
	lines := []string{
		"uptime=" + report.Uptime.Truncate(time.Second).String(),
		fmt.Sprintf("terminals=%d", len(report.Terminals)),
		"online=" + strings.Join(report.Terminals, " "),
		fmt.Sprintf("trains=%d", report.Stats.Trains),
		fmt.Sprintf("pending=%d", report.Stats.Pending),
		fmt.Sprintf("paid=%d", report.Stats.Paid),
		fmt.Sprintf("cancelled=%d", report.Stats.Cancelled),
		fmt.Sprintf("expired=%d", report.Stats.Expired),
	}
	return strings.Join(lines, "\n")
}
