// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package conntrack wraps connections to count transferred bytes and to get notified on close.
package conntrack

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
)

// ErrCloseWriteUnsupported is returned by CloseWrite when the wrapped connection cannot half-close.
var ErrCloseWriteUnsupported = errors.New("close write not supported")

// Observer allows to observe the number of bytes read and written from a connection.
type Observer struct {
	rx atomic.Uint64
	tx atomic.Uint64
}

// Rx returns the number of bytes read from the connection.
// It requires TrackTraffic to be set to true, otherwise it returns 0.
func (o *Observer) Rx() uint64 {
	return o.rx.Load()
}

// Tx returns the number of bytes written to the connection.
// It requires TrackTraffic to be set to true, otherwise it returns 0.
func (o *Observer) Tx() uint64 {
	return o.tx.Load()
}

// Conn is a net.Conn that optionally counts traffic and runs a callback on close.
// CloseWrite is forwarded to the wrapped connection.
type Conn struct {
	net.Conn

	o       *Observer
	onClose func()
	once    sync.Once
}

func (c *Conn) Read(p []byte) (n int, err error) {
	n, err = c.Conn.Read(p)
	if c.o != nil && n > 0 {
		c.o.rx.Add(uint64(n))
	}
	return
}

func (c *Conn) Write(p []byte) (n int, err error) {
	n, err = c.Conn.Write(p)
	if c.o != nil && n > 0 {
		c.o.tx.Add(uint64(n))
	}
	return
}

func (c *Conn) Close() error {
	err := c.Conn.Close()
	if c.onClose != nil {
		c.once.Do(c.onClose)
	}
	return err
}

func (c *Conn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return ErrCloseWriteUnsupported
}

// Observer returns nil when traffic is not tracked.
func (c *Conn) Observer() *Observer {
	return c.o
}

// Unwrap returns the wrapped connection.
func (c *Conn) Unwrap() net.Conn {
	return c.Conn
}

type Builder struct {
	// TrackTraffic enables counting of bytes read and written by the connection.
	// Use Rx and Tx to get the number of bytes read and written.
	TrackTraffic bool

	// OnClose is called after the underlying connection is closed and before the Close method returns.
	// OnClose is called at most once.
	OnClose func()
}

func (b Builder) Build(c net.Conn) net.Conn {
	wc, _ := b.BuildWithObserver(c)
	return wc
}

// BuildWithObserver wraps c, the Observer is nil unless TrackTraffic is set.
// If neither option is set c is returned as is.
func (b Builder) BuildWithObserver(c net.Conn) (net.Conn, *Observer) {
	if !b.TrackTraffic && b.OnClose == nil {
		return c, nil
	}

	wc := &Conn{
		Conn:    c,
		onClose: b.OnClose,
	}
	if b.TrackTraffic {
		wc.o = new(Observer)
	}

	return wc, wc.o
}

// ObserverFromConn returns the Observer of the outermost tracking Conn in the wrapping chain.
func ObserverFromConn(conn net.Conn) *Observer {
	for conn != nil {
		if c, ok := conn.(*Conn); ok && c.o != nil {
			return c.o
		}
		u, ok := conn.(interface{ Unwrap() net.Conn })
		if !ok {
			return nil
		}
		conn = u.Unwrap()
	}
	return nil
}
