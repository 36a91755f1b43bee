// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"context"
	"io"
	"net"
	"testing"

	"go.uber.org/goleak"
)

func TestNewPipePair(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c, s, err := NewPipePair(context.Background(), DefaultPipeConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	defer s.Close()

	if c.LocalAddr().String() != s.RemoteAddr().String() {
		t.Fatalf("pipes are not connected: %s != %s", c.LocalAddr(), s.RemoteAddr())
	}
	if ip := c.RemoteAddr().(*net.TCPAddr).IP; !ip.IsLoopback() { //nolint:forcetypeassert // TCP pair
		t.Fatalf("got %s, want loopback", ip)
	}

	if _, err := c.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(s, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "ping" {
		t.Fatalf("got %q, want ping", buf)
	}
}

func TestNewPipePairCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewPipePair(ctx, DefaultPipeConfig())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsKind(err, ConnectError) {
		t.Fatalf("got %v, want connect error", err)
	}
}

func TestPipeConfigValidate(t *testing.T) {
	cfg := DefaultPipeConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	cfg.Retries = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error")
	}
}
