// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"log/slog"
	"net"
	"os"
	"testing"
	"time"

	"github.com/bureau-foundation/railbook/lib/protocol"
	"github.com/bureau-foundation/railbook/lib/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// testSession returns a session for terminalID over an in-memory pipe
// and the peer end of the pipe, wrapped as a Conn.
func testSession(t *testing.T, terminalID string) (*Session, *protocol.Conn) {
	t.Helper()
	server, client := net.Pipe()
	session := New(terminalID, protocol.NewConn(server, 0), testLogger())
	t.Cleanup(func() {
		server.Close()
		client.Close()
		session.Close()
	})
	return session, protocol.NewConn(client, 0)
}

// receiveAsync reads envelopes from peer onto a channel until the pipe
// closes.
func receiveAsync(peer *protocol.Conn) <-chan protocol.Envelope {
	received := make(chan protocol.Envelope, 32)
	go func() {
		defer close(received)
		for {
			envelope, err := peer.Receive()
			if err != nil {
				return
			}
			received <- envelope
		}
	}()
	return received
}

func TestPushDelivers(t *testing.T) {
	directory := NewDirectory(testLogger())
	session, peer := testSession(t, "terminal-a")
	received := receiveAsync(peer)

	if replaced := directory.Register(session); replaced != nil {
		t.Fatalf("first Register replaced %v", replaced)
	}
	if !directory.Push("terminal-a", protocol.OrderUpdate("ab12cd34", "EXPIRED")) {
		t.Fatal("Push to online terminal was dropped")
	}

	envelope := testutil.RequireReceive(t, received, 5*time.Second, "push")
	if envelope.Type != protocol.TypeOrderUpdate || envelope.Payload != "ab12cd34,EXPIRED" {
		t.Fatalf("received %+v", envelope)
	}
	if envelope.Origin != protocol.ServerOrigin {
		t.Errorf("origin = %q, want %q", envelope.Origin, protocol.ServerOrigin)
	}
}

func TestPushToOfflineTerminalIsDropped(t *testing.T) {
	directory := NewDirectory(testLogger())
	if directory.Push("nobody", protocol.OrderUpdate("ab12cd34", "CANCELLED")) {
		t.Fatal("Push to offline terminal reported delivered")
	}
}

func TestPushDropsWhenBufferFull(t *testing.T) {
	directory := NewDirectory(testLogger())
	session, _ := testSession(t, "terminal-a")
	directory.Register(session)

	// Nobody reads the peer, so the writer blocks on its first push
	// and the buffer fills behind it.
	accepted := 0
	var last bool
	for i := 0; i < pushBufferSize+2; i++ {
		last = directory.Push("terminal-a", protocol.OrderUpdate("ab12cd34", "PAID"))
		if last {
			accepted++
		}
	}
	if last {
		t.Fatal("push beyond buffer capacity was accepted")
	}
	if accepted < pushBufferSize || accepted > pushBufferSize+1 {
		t.Fatalf("accepted %d pushes, want %d or %d", accepted, pushBufferSize, pushBufferSize+1)
	}
}

func TestRegisterReplacesAndStaleUnregisterIsIgnored(t *testing.T) {
	directory := NewDirectory(testLogger())
	first, _ := testSession(t, "terminal-a")
	second, peer := testSession(t, "terminal-a")
	received := receiveAsync(peer)

	directory.Register(first)
	if replaced := directory.Register(second); replaced != first {
		t.Fatalf("Register returned %v, want the first session", replaced)
	}

	if directory.Unregister(first) {
		t.Fatal("stale session unregistered its replacement")
	}
	current, online := directory.Lookup("terminal-a")
	if !online || current != second {
		t.Fatal("replacement session is no longer registered")
	}

	directory.Push("terminal-a", protocol.OrderUpdate("ab12cd34", "PAID"))
	testutil.RequireReceive(t, received, 5*time.Second, "push to replacement session")

	if !directory.Unregister(second) {
		t.Fatal("current session was not unregistered")
	}
	if directory.Len() != 0 {
		t.Fatalf("Len = %d after unregister", directory.Len())
	}
}

func TestTerminalsSorted(t *testing.T) {
	directory := NewDirectory(testLogger())
	for _, terminalID := range []string{"terminal-c", "admin", "terminal-a"} {
		session, _ := testSession(t, terminalID)
		directory.Register(session)
	}

	got := directory.Terminals()
	want := []string{"admin", "terminal-a", "terminal-c"}
	if len(got) != len(want) {
		t.Fatalf("Terminals() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Terminals() = %v, want %v", got, want)
		}
	}
}

func TestClosedSessionRefusesPushes(t *testing.T) {
	directory := NewDirectory(testLogger())
	session, _ := testSession(t, "terminal-a")
	directory.Register(session)

	session.Close()
	if directory.Push("terminal-a", protocol.OrderUpdate("ab12cd34", "PAID")) {
		t.Fatal("closed session accepted a push")
	}
}

func TestRepliesAndPushesDoNotInterleave(t *testing.T) {
	directory := NewDirectory(testLogger())
	session, peer := testSession(t, "terminal-a")
	received := receiveAsync(peer)
	directory.Register(session)

	const rounds = 10
	go func() {
		for i := 0; i < rounds; i++ {
			directory.Push("terminal-a", protocol.OrderUpdate("ab12cd34", "PAID"))
		}
	}()
	for i := 0; i < rounds; i++ {
		if err := session.Send(protocol.Success("ok")); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	replies := 0
	for replies < rounds {
		envelope := testutil.RequireReceive(t, received, 5*time.Second, "envelope")
		switch envelope.Type {
		case protocol.TypeSuccess:
			if envelope.Payload != "ok" {
				t.Fatalf("reply payload = %q", envelope.Payload)
			}
			replies++
		case protocol.TypeOrderUpdate:
			if envelope.Payload != "ab12cd34,PAID" {
				t.Fatalf("push payload = %q", envelope.Payload)
			}
		default:
			t.Fatalf("unexpected envelope %+v", envelope)
		}
	}
}
