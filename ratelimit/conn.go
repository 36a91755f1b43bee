// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ratelimit

import (
	"context"
	"net"

	"golang.org/x/time/rate"
)

// Conn delays reads and writes so that the transfer rate stays within the limits.
// A nil limiter means no limit in that direction.
type Conn struct {
	net.Conn
	rx *rate.Limiter
	tx *rate.Limiter
}

func (c *Conn) Read(b []byte) (n int, err error) {
	n, err = c.Conn.Read(b)
	wait(c.rx, n)
	return
}

func (c *Conn) Write(b []byte) (n int, err error) {
	n, err = c.Conn.Write(b)
	wait(c.tx, n)
	return
}

// CloseWrite half-closes the wrapped connection if it supports it.
func (c *Conn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return c.Conn.Close()
}

func (c *Conn) Unwrap() net.Conn {
	return c.Conn
}

func wait(l *rate.Limiter, n int) {
	if l == nil || n <= 0 {
		return
	}
	// WaitN fails only if n exceeds the burst, which is larger than any buffer used by the proxy.
	l.WaitN(context.Background(), n) //nolint:errcheck // see above
}
