// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/saucelabs/proxydemo/log"
	"github.com/saucelabs/proxydemo/utils/certutil"
)

func (l *Listener) acceptAndEcho() {
	for {
		c, err := l.Accept()
		if err != nil {
			return
		}
		go func() {
			defer c.Close()
			if err := l.Handshake(context.Background(), c); err != nil {
				return
			}
			io.Copy(c, c) //nolint:errcheck // echo until the peer closes
		}()
	}
}

func newTestListener(t *testing.T, l *Listener) *Listener {
	t.Helper()

	if l.Address == "" {
		l.Address = "127.0.0.1:0"
	}
	l.Log = log.NopLogger
	if err := l.Listen(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	go l.acceptAndEcho()

	return l
}

func TestDialerMetrics(t *testing.T) {
	l := newTestListener(t, &Listener{})

	r := prometheus.NewRegistry()
	cfg := DefaultDialConfig()
	cfg.PromNamespace = "test"
	cfg.PromRegistry = r
	d := NewDialer(cfg)

	ctx := context.Background()
	for range 3 {
		conn, err := d.DialContext(ctx, "tcp", l.Addr().String())
		if err != nil {
			t.Fatalf("d.DialContext(): got %v, want no error", err)
		}
		if _, err := conn.Write([]byte("x")); err != nil {
			t.Fatal(err)
		}
		if _, err := conn.Read(make([]byte, 1)); err != nil {
			t.Fatal(err)
		}
		conn.Close()
	}

	if got := testutil.ToFloat64(d.metrics.dialed.WithLabelValues("localhost")); got != 3 {
		t.Fatalf("dialed: got %v, want 3", got)
	}
	if got := testutil.ToFloat64(d.metrics.active.WithLabelValues("localhost")); got != 0 {
		t.Fatalf("active: got %v, want 0", got)
	}
}

func TestDialerConnectError(t *testing.T) {
	ll, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ll.Addr().String()
	ll.Close()

	cfg := DefaultDialConfig()
	cfg.DialTimeout = time.Second
	d := NewDialer(cfg)

	_, err = d.DialContext(context.Background(), "tcp", addr)
	if err == nil {
		t.Fatal("d.DialContext(): got no error, want error")
	}
	if !IsKind(err, ConnectError) {
		t.Fatalf("got %v, want connect error", err)
	}
	if got := testutil.ToFloat64(d.metrics.errors.WithLabelValues("localhost")); got != 1 {
		t.Fatalf("errors: got %v, want 1", got)
	}
}

func TestListenerTLS(t *testing.T) {
	cert, err := certutil.RSASelfSignedCert().Gen()
	if err != nil {
		t.Fatal(err)
	}
	l := newTestListener(t, &Listener{
		TLSConfig:           &tls.Config{Certificates: []tls.Certificate{cert}},
		TLSHandshakeTimeout: 5 * time.Second,
	})

	conn, err := tls.Dial("tcp", l.Addr().String(), &tls.Config{InsecureSkipVerify: true}) //nolint:gosec // self-signed
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 5)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "hello" {
		t.Fatalf("got %q, want hello", buf)
	}
}

func TestListenerBindError(t *testing.T) {
	ll, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ll.Close()

	l := &Listener{Address: ll.Addr().String()}
	if err := l.Listen(); err == nil {
		l.Close()
		t.Fatal("expected bind error")
	}
}

func TestListenerAcceptAfterClose(t *testing.T) {
	l := &Listener{Address: "127.0.0.1:0"}
	if err := l.Listen(); err != nil {
		t.Fatal(err)
	}
	l.Close()

	if _, err := l.Accept(); !errors.Is(err, net.ErrClosed) {
		t.Fatalf("got %v, want net.ErrClosed", err)
	}
}

func TestHostLabelLocalhost(t *testing.T) {
	addrs := []string{
		"localhost:80",
		"127.0.0.100:80",
		"[::1]:80",
		"[::]:52367",
	}

	for _, addr := range addrs {
		if host := hostLabel(addr); host != "localhost" {
			t.Fatalf("hostLabel(%q): got %q, want localhost", addr, host)
		}
	}
}
