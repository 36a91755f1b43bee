// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tunnel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/saucelabs/proxydemo"
	"github.com/saucelabs/proxydemo/log"
	"go.uber.org/multierr"
)

// ErrIdle is returned by Pump when no bytes were moved within the idle budget.
var ErrIdle = errors.New("bridge idle")

// BridgeSession carries a TLS session inside another TLS connection.
// The inner TLS client runs on ClientPipe, the bridge moves its records
// between the other end of the pipe and the outer connection.
type BridgeSession struct {
	outer      net.Conn
	clientPipe net.Conn
	serverPipe net.Conn
	log        log.StructuredLogger
	buf        []byte
}

// NewBridgeSession creates a loopback pipe pair and binds it to outer.
// The caller owns the session and must close it, outer is not closed by the session.
func NewBridgeSession(ctx context.Context, outer net.Conn, cfg *proxydemo.PipeConfig, l log.StructuredLogger) (*BridgeSession, error) {
	clientPipe, serverPipe, err := proxydemo.NewPipePair(ctx, cfg)
	if err != nil {
		return nil, err
	}

	l.Debug(connDump("  Client pipe", clientPipe))
	l.Debug(connDump("  Server pipe", serverPipe))

	return &BridgeSession{
		outer:      outer,
		clientPipe: clientPipe,
		serverPipe: serverPipe,
		log:        l,
		buf:        make([]byte, 32*1024),
	}, nil
}

// ClientPipe returns the end of the pipe the inner TLS client should use.
func (b *BridgeSession) ClientPipe() net.Conn {
	return b.clientPipe
}

// PumpOnce moves pending bytes once in each direction, waiting at most timeout per direction.
// It returns the number of bytes moved, and io.EOF once either side is finished.
// EOF on the outer connection is passed on by closing the write side of the server pipe.
func (b *BridgeSession) PumpOnce(timeout time.Duration) (int, error) {
	up, err := b.move(b.outer, b.serverPipe, timeout)
	if err != nil {
		return up, err
	}

	down, err := b.move(b.serverPipe, b.outer, timeout)
	if errors.Is(err, io.EOF) {
		if cw, ok := b.serverPipe.(interface{ CloseWrite() error }); ok {
			if cerr := cw.CloseWrite(); cerr != nil {
				b.log.Debug("failed to close write side of server pipe", "error", cerr)
			}
		}
	}
	return up + down, err
}

// move copies at most one read worth of data from src to dst.
func (b *BridgeSession) move(dst, src net.Conn, timeout time.Duration) (int, error) {
	if err := src.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	n, err := src.Read(b.buf)
	if n > 0 {
		if _, werr := dst.Write(b.buf[:n]); werr != nil {
			return n, werr
		}
	}
	if err != nil {
		switch {
		case isTimeout(err):
			return n, nil
		case isEOF(err):
			return n, io.EOF
		default:
			return n, err
		}
	}
	return n, nil
}

// Pump runs PumpOnce cycles until done is closed, the outer connection reaches EOF,
// or more than idleRetries consecutive cycles move nothing.
func (b *BridgeSession) Pump(done <-chan struct{}, interval time.Duration, idleRetries int) error {
	idle := 0
	for {
		select {
		case <-done:
			return nil
		default:
		}

		n, err := b.PumpOnce(interval)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if n > 0 {
			idle = 0
			continue
		}
		idle++
		if idle > idleRetries {
			return ErrIdle
		}
	}
}

// Close closes both ends of the pipe pair.
func (b *BridgeSession) Close() error {
	return multierr.Combine(
		closeConn("client pipe", b.clientPipe),
		closeConn("server pipe", b.serverPipe),
	)
}

func closeConn(name string, c net.Conn) error {
	if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

func connDump(caption string, c net.Conn) string {
	return fmt.Sprintf("%s: %s => %s", caption, c.LocalAddr(), c.RemoteAddr())
}
