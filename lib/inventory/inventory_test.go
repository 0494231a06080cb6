// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"errors"
	"reflect"
	"testing"
)

const day = "2026-01-16"

func seededStore() *Store {
	store := NewStore()
	store.Add("K303", "西安", "成都", day, "硬座", 5)
	store.Add("K303", "西安", "成都", day, "硬卧", 2)
	store.Add("G101", "北京", "上海", "2026-01-15", "二等座", 100)
	return store
}

func TestReserveDecrements(t *testing.T) {
	store := seededStore()
	if err := store.Reserve("K303", day, "硬座", 2); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if count, _ := store.Available("K303", day, "硬座"); count != 3 {
		t.Errorf("available = %d, want 3", count)
	}
	if err := store.Reserve("K303", day, "硬座", 3); err != nil {
		t.Fatalf("Reserve of the remainder: %v", err)
	}
	if count, _ := store.Available("K303", day, "硬座"); count != 0 {
		t.Errorf("available = %d, want 0", count)
	}
}

func TestReserveFailuresLeaveStoreUnchanged(t *testing.T) {
	tests := []struct {
		name      string
		trainID   string
		date      string
		seatClass string
		n         int
		want      error
	}{
		{"unknown train", "Z999", day, "硬座", 1, ErrTrainNotFound},
		{"unscheduled date", "K303", "2026-01-17", "硬座", 1, ErrNoSchedule},
		{"unscheduled class", "K303", day, "软卧", 1, ErrNoSchedule},
		{"insufficient", "K303", day, "硬座", 6, ErrInsufficientSeats},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			store := seededStore()
			before := store.Snapshot(day)
			err := store.Reserve(test.trainID, test.date, test.seatClass, test.n)
			if !errors.Is(err, test.want) {
				t.Fatalf("Reserve error = %v, want %v", err, test.want)
			}
			if after := store.Snapshot(day); !reflect.DeepEqual(before, after) {
				t.Errorf("failed Reserve mutated the store:\nbefore %+v\nafter  %+v", before, after)
			}
		})
	}
}

func TestReleaseIsUnclamped(t *testing.T) {
	store := seededStore()
	store.Release("K303", day, "硬座", 10)
	if count, _ := store.Available("K303", day, "硬座"); count != 15 {
		t.Errorf("available after over-release = %d, want 15", count)
	}
	store.Release("Z999", day, "硬座", 1)
	if store.Len() != 2 {
		t.Errorf("Release created a train; Len() = %d", store.Len())
	}
}

func TestAddIsAdditive(t *testing.T) {
	store := NewStore()
	store.Add("G999", "深圳", "长沙", day, "二等座", 500)
	store.Add("G999", "广州", "武汉", day, "二等座", 500)

	if count, _ := store.Available("G999", day, "二等座"); count != 1000 {
		t.Errorf("available = %d, want 1000", count)
	}
	views := store.Snapshot(day)
	if views[0].Origin != "深圳" || views[0].Destination != "长沙" {
		t.Errorf("route changed by second Add: %s-%s", views[0].Origin, views[0].Destination)
	}
}

func TestQuery(t *testing.T) {
	store := seededStore()

	classes, scheduled := store.Query("K303", day)
	if !scheduled {
		t.Fatal("K303 should be scheduled")
	}
	if want := map[string]int{"硬座": 5, "硬卧": 2}; !reflect.DeepEqual(classes, want) {
		t.Errorf("Query = %v, want %v", classes, want)
	}

	// The result is a copy.
	classes["硬座"] = 0
	if count, _ := store.Available("K303", day, "硬座"); count != 5 {
		t.Errorf("mutating the Query result changed the store")
	}

	if _, scheduled := store.Query("K303", "2026-02-01"); scheduled {
		t.Error("K303 reported a schedule for an unknown date")
	}
	if _, scheduled := store.Query("Z999", day); scheduled {
		t.Error("unknown train reported a schedule")
	}
}

func TestSnapshotSortedWithSentinel(t *testing.T) {
	views := seededStore().Snapshot(day)
	if len(views) != 2 {
		t.Fatalf("len(views) = %d, want 2", len(views))
	}
	if views[0].ID != "G101" || views[1].ID != "K303" {
		t.Fatalf("order = %s, %s; want G101, K303", views[0].ID, views[1].ID)
	}
	if views[0].Scheduled || views[0].Classes != nil {
		t.Errorf("G101 has no bucket on %s but view is %+v", day, views[0])
	}
	if !views[1].Scheduled {
		t.Errorf("K303 should be scheduled on %s", day)
	}
}

func TestValidDate(t *testing.T) {
	for date, want := range map[string]bool{
		"2026-01-16": true,
		"2026-02-30": false,
		"16/01/2026": false,
		"":           false,
		"today":      false,
	} {
		if got := ValidDate(date); got != want {
			t.Errorf("ValidDate(%q) = %v, want %v", date, got, want)
		}
	}
}
