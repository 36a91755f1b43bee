// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ratelimit

import (
	"io"
	"net"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	if l := newLimiter(0); l != nil {
		t.Fatal("expected no limiter for zero bandwidth")
	}
	if l := newLimiter(1024); l.Burst() != minBurst {
		t.Fatalf("burst: got %d, want %d", l.Burst(), minBurst)
	}
	if l := newLimiter(1 << 30); l.Burst() != 1<<30/64 {
		t.Fatalf("burst: got %d, want %d", l.Burst(), 1<<30/64)
	}
}

func TestListenerLimitsReads(t *testing.T) {
	ll, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	l := NewListener(ll, 1024, 0)
	defer l.Close()

	// Drain the burst so that the next read has to wait.
	l.rx.AllowN(time.Now(), l.rx.Burst())

	go func() {
		c, err := net.Dial("tcp", l.Addr().String())
		if err != nil {
			return
		}
		defer c.Close()
		c.Write(make([]byte, 256)) //nolint:errcheck // the reader checks the size
	}()

	c, err := l.Accept()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	start := time.Now()
	if _, err := io.ReadFull(c, make([]byte, 256)); err != nil {
		t.Fatal(err)
	}
	if d := time.Since(start); d < 100*time.Millisecond {
		t.Fatalf("read took %s, expected it to be rate limited", d)
	}
}
