// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

type recordingT struct {
	failed  bool
	message string
}

func (r *recordingT) Helper() {}

func (r *recordingT) Fatalf(format string, args ...any) {
	r.failed = true
	r.message = fmt.Sprintf(format, args...)
	// Fatalf must not return to the helper; unwind the goroutine.
	panic(r)
}

func runRecording(fn func(r *recordingT)) *recordingT {
	r := &recordingT{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if v := recover(); v != nil && v != r {
				panic(v)
			}
		}()
		fn(r)
	}()
	<-done
	return r
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	if got := RequireReceive(t, ch, time.Second, "value"); got != 7 {
		t.Fatalf("RequireReceive = %d, want 7", got)
	}
}

func TestRequireReceiveTimeout(t *testing.T) {
	r := runRecording(func(r *recordingT) {
		RequireReceive(r, make(chan int), 10*time.Millisecond, "waiting for %s", "nothing")
	})
	if !r.failed {
		t.Fatal("RequireReceive did not fail on timeout")
	}
	if !strings.Contains(r.message, "waiting for nothing") {
		t.Errorf("message %q does not include the formatted context", r.message)
	}
}

func TestRequireReceiveClosed(t *testing.T) {
	ch := make(chan int)
	close(ch)
	r := runRecording(func(r *recordingT) {
		RequireReceive(r, ch, time.Second)
	})
	if !r.failed || !strings.Contains(r.message, "channel closed") {
		t.Fatalf("closed channel: failed=%v message=%q", r.failed, r.message)
	}
}

func TestRequireNoReceive(t *testing.T) {
	RequireNoReceive(t, make(chan int), 10*time.Millisecond)

	ch := make(chan int, 1)
	ch <- 1
	r := runRecording(func(r *recordingT) {
		RequireNoReceive(r, ch, time.Second, "quiet channel")
	})
	if !r.failed {
		t.Fatal("RequireNoReceive accepted a delivered value")
	}
}

func TestRequireClosed(t *testing.T) {
	ch := make(chan struct{})
	close(ch)
	RequireClosed(t, ch, time.Second)
}

func TestUniqueID(t *testing.T) {
	first := UniqueID("terminal")
	second := UniqueID("terminal")
	if first == second {
		t.Fatalf("UniqueID returned %q twice", first)
	}
	if !strings.HasPrefix(first, "terminal-") {
		t.Errorf("UniqueID(%q) = %q, missing prefix", "terminal", first)
	}
}
