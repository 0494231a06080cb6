// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/railbook/lib/testutil"
)

// pipe returns two Conns joined by an in-memory connection.
func pipe(t *testing.T) (*Conn, *Conn, net.Conn) {
	t.Helper()
	left, right := net.Pipe()
	t.Cleanup(func() {
		left.Close()
		right.Close()
	})
	return NewConn(left, time.Second), NewConn(right, time.Second), left
}

func TestConnRoundTrip(t *testing.T) {
	sender, receiver, _ := pipe(t)

	sent := Envelope{Origin: "terminal-1", Type: TypeReserve, Payload: "K303,2,2026-01-16,硬座"}
	go sender.Send(sent)

	got, err := receiver.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got != sent {
		t.Errorf("Receive = %+v, want %+v", got, sent)
	}
}

func TestConnDeterministicEncoding(t *testing.T) {
	envelope := Envelope{Origin: ServerOrigin, Type: TypeSuccess, Payload: "ok"}
	first, err := Marshal(envelope)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(envelope)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("two encodings of the same envelope differ")
	}
}

func TestConnMalformedEnvelopeKeepsStream(t *testing.T) {
	_, receiver, raw := pipe(t)

	notAnEnvelope, err := Marshal(42)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	missingType, err := Marshal(map[string]string{"origin": "terminal-1", "payload": "x"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	valid, err := Marshal(Envelope{Origin: "terminal-1", Type: TypeQuery})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	go func() {
		raw.Write(notAnEnvelope)
		raw.Write(missingType)
		raw.Write(valid)
	}()

	for i := 0; i < 2; i++ {
		if _, err := receiver.Receive(); !errors.Is(err, ErrMalformedEnvelope) {
			t.Fatalf("Receive #%d error = %v, want ErrMalformedEnvelope", i+1, err)
		}
	}
	got, err := receiver.Receive()
	if err != nil {
		t.Fatalf("Receive after malformed envelopes: %v", err)
	}
	if got.Type != TypeQuery {
		t.Errorf("Receive = %+v, want a QUERY", got)
	}
}

func TestConnSyntaxErrorIsFatal(t *testing.T) {
	_, receiver, raw := pipe(t)
	go func() {
		raw.Write([]byte{0xff})
		raw.Close()
	}()

	_, err := receiver.Receive()
	if err == nil {
		t.Fatal("Receive accepted a lone break byte")
	}
	if errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("syntax error reported as recoverable: %v", err)
	}
}

func TestConnConcurrentSendsDoNotInterleave(t *testing.T) {
	sender, receiver, _ := pipe(t)

	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				sender.Send(Envelope{Origin: ServerOrigin, Type: TypeOrderUpdate, Payload: "a1b2c3d4,EXPIRED"})
			}
		}()
	}

	received := make(chan Envelope)
	go func() {
		for i := 0; i < writers*perWriter; i++ {
			envelope, err := receiver.Receive()
			if err != nil {
				close(received)
				return
			}
			received <- envelope
		}
	}()

	for i := 0; i < writers*perWriter; i++ {
		envelope := testutil.RequireReceive(t, received, 5*time.Second, "envelope %d", i)
		if envelope.Payload != "a1b2c3d4,EXPIRED" {
			t.Fatalf("envelope %d corrupted: %+v", i, envelope)
		}
	}
	wg.Wait()
}
