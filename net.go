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
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saucelabs/proxydemo/conntrack"
	"github.com/saucelabs/proxydemo/log"
	"github.com/saucelabs/proxydemo/ratelimit"
)

type DialConfig struct {
	// DialTimeout is the maximum amount of time a dial will wait for
	// connect to complete.
	//
	// With or without a timeout, the operating system may impose
	// its own earlier timeout. For instance, TCP timeouts are
	// often around 3 minutes.
	DialTimeout time.Duration

	// KeepAlive enables TCP keep-alive probes for an active network connection.
	// The keep-alive probes are sent with OS specific intervals.
	KeepAlive bool

	PromNamespace string
	PromRegistry  prometheus.Registerer
}

func DefaultDialConfig() *DialConfig {
	return &DialConfig{
		DialTimeout:   10 * time.Second,
		KeepAlive:     true,
		PromNamespace: "proxydemo",
	}
}

func (c *DialConfig) Validate() error {
	if c.DialTimeout < 0 {
		return errors.New("dial timeout must not be negative")
	}
	return nil
}

// Dialer opens outbound TCP connections with a bounded connect timeout.
// It implements proxy.Dialer and proxy.ContextDialer from golang.org/x/net/proxy.
type Dialer struct {
	nd      net.Dialer
	metrics *dialerMetrics
}

func NewDialer(cfg *DialConfig) *Dialer {
	nd := net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: -1,
		Resolver: &net.Resolver{
			PreferGo: true,
		},
	}

	if cfg.KeepAlive {
		nd.Control = func(network, address string, c syscall.RawConn) error {
			return c.Control(enableTCPKeepAlive)
		}
	}

	return &Dialer{
		nd:      nd,
		metrics: newDialerMetrics(cfg.PromRegistry, cfg.PromNamespace),
	}
}

// DialContext connects to the address on the named network.
// Failures are returned as ConnectError.
func (d *Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	c, err := d.nd.DialContext(ctx, network, address)
	if err != nil {
		d.metrics.error(address)
		return nil, NewError(ConnectError, err, "unable to connect to "+address)
	}

	d.metrics.dial(address)

	return conntrack.Builder{
		OnClose: func() { d.metrics.close(address) },
	}.Build(c), nil
}

func (d *Dialer) Dial(network, address string) (net.Conn, error) {
	return d.DialContext(context.Background(), network, address)
}

func defaultListenConfig() *net.ListenConfig {
	return &net.ListenConfig{
		KeepAlive: -1,
		Control: func(network, address string, c syscall.RawConn) error {
			return c.Control(enableTCPKeepAlive)
		},
	}
}

// Listen creates a listener for the provided network and address and configures OS-specific keep-alive parameters.
// See net.Listen for more information.
func Listen(network, address string) (net.Listener, error) {
	// The context cancellation does not close the listener.
	return defaultListenConfig().Listen(context.Background(), network, address)
}

type ListenerCallbacks interface {
	// OnAccept is called when a new connection is successfully accepted.
	OnAccept(net.Conn)

	// OnBindError is called when a listener fails to bind to an address.
	OnBindError(address string, err error)

	// OnTLSHandshakeError is called after a TLS handshake errors out.
	OnTLSHandshakeError(*tls.Conn, error)
}

// Listener is a TCP listener with TLS support, rate limiting and callbacks.
//
// When TLSConfig is set accepted connections are wrapped in TLS server connections.
// The handshake is not performed by Accept, call Handshake from the connection goroutine
// so that a slow client does not block the accept loop.
type Listener struct {
	Address             string
	Log                 log.StructuredLogger
	TLSConfig           *tls.Config
	TLSHandshakeTimeout time.Duration
	ReadLimit           int64
	WriteLimit          int64
	Callbacks           ListenerCallbacks
	PromNamespace       string
	PromRegistry        prometheus.Registerer

	listener  net.Listener
	metrics   *listenerMetrics
	closeOnce sync.Once
}

// Listen binds the listener to Address.
// The method should be called only once.
func (l *Listener) Listen() error {
	if l.Log == nil {
		l.Log = log.NopLogger
	}
	l.metrics = newListenerMetrics(l.PromRegistry, l.PromNamespace)

	ll, err := Listen("tcp", l.Address)
	if err != nil {
		if l.Callbacks != nil {
			l.Callbacks.OnBindError(l.Address, err)
		}
		return fmt.Errorf("failed to listen on %s: %w", l.Address, err)
	}

	if rl, wl := l.ReadLimit, l.WriteLimit; rl > 0 || wl > 0 {
		// Notice that the ReadLimit stands for the read limit *from* a proxy, and the WriteLimit
		// stands for the write limit *to* a proxy, thus the ReadLimit is in fact
		// a txBandwidth and the WriteLimit is a rxBandwidth.
		ll = ratelimit.NewListener(ll, wl, rl)
	}

	l.listener = ll

	return nil
}

func (l *Listener) Accept() (net.Conn, error) {
	c, err := l.listener.Accept()
	if err != nil {
		if !errors.Is(err, net.ErrClosed) {
			l.metrics.error()
		}
		return nil, err
	}

	l.metrics.accept()
	if l.Callbacks != nil {
		l.Callbacks.OnAccept(c)
	}

	c = conntrack.Builder{
		OnClose: l.metrics.close,
	}.Build(c)

	if l.TLSConfig == nil {
		return c, nil
	}

	return tls.Server(c, l.TLSConfig), nil
}

// Handshake runs the TLS server handshake if c was returned by Accept with TLS enabled.
// It is a no-op for plain connections.
func (l *Listener) Handshake(ctx context.Context, c net.Conn) error {
	tc, ok := c.(*tls.Conn)
	if !ok {
		return nil
	}

	if l.TLSHandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.TLSHandshakeTimeout)
		defer cancel()
	}

	if err := tc.HandshakeContext(ctx); err != nil {
		l.metrics.error()
		if l.Callbacks != nil {
			l.Callbacks.OnTLSHandshakeError(tc, err)
		}
		return NewError(ConnectError, err, "TLS handshake failed")
	}

	return nil
}

func (l *Listener) Addr() net.Addr {
	if l.listener == nil {
		return &net.IPAddr{}
	}

	return l.listener.Addr()
}

func (l *Listener) Close() error {
	if l.listener == nil {
		return nil
	}

	var err error
	l.closeOnce.Do(func() { err = l.listener.Close() })
	return err
}
