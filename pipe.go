// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

type PipeConfig struct {
	// Retries is the number of attempts to create the pair before giving up.
	Retries int

	// Timeout bounds connecting to and accepting from the temporary listener.
	Timeout time.Duration
}

func DefaultPipeConfig() *PipeConfig {
	return &PipeConfig{
		Retries: 3,
		Timeout: 5 * time.Second,
	}
}

func (c *PipeConfig) Validate() error {
	if c.Retries < 1 {
		return errors.New("pipe retries must be at least 1")
	}
	if c.Timeout <= 0 {
		return errors.New("pipe timeout must be positive")
	}
	return nil
}

// NewPipePair returns two connected loopback TCP sockets.
// It listens on an ephemeral 127.0.0.1 port, connects to it, accepts the connection
// and closes the temporary listener. Failures are retried up to cfg.Retries times,
// the last failure is returned as ConnectError.
func NewPipePair(ctx context.Context, cfg *PipeConfig) (clientPipe, serverPipe net.Conn, err error) {
	for i := 0; i < max(cfg.Retries, 1); i++ {
		clientPipe, serverPipe, err = newPipePair(ctx, cfg.Timeout)
		if err == nil {
			return clientPipe, serverPipe, nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, nil, NewError(ConnectError, err, "")
}

type acceptResult struct {
	c   net.Conn
	err error
}

func newPipePair(ctx context.Context, timeout time.Duration) (net.Conn, net.Conn, error) {
	ll, err := defaultListenConfig().Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, fmt.Errorf("could not create temp server: %w", err)
	}
	defer ll.Close()

	addr := ll.Addr().String()

	acceptc := make(chan acceptResult, 1)
	go func() {
		c, err := ll.Accept()
		acceptc <- acceptResult{c, err}
	}()

	d := net.Dialer{Timeout: timeout}
	cc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		ll.Close()
		if res := <-acceptc; res.c != nil {
			res.c.Close()
		}
		return nil, nil, fmt.Errorf("connection to temp server %s failed: %w", addr, err)
	}

	refused := func(cause error) error {
		cc.Close()
		if cause == nil {
			return fmt.Errorf("temp server %s refused connection", addr)
		}
		return fmt.Errorf("temp server %s refused connection: %w", addr, cause)
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case res := <-acceptc:
		if res.err != nil {
			return nil, nil, refused(res.err)
		}
		// Another local process may have raced us to the ephemeral port.
		if res.c.RemoteAddr().String() != cc.LocalAddr().String() {
			res.c.Close()
			return nil, nil, refused(nil)
		}
		return cc, res.c, nil
	case <-t.C:
	case <-ctx.Done():
	}

	ll.Close()
	if res := <-acceptc; res.c != nil {
		res.c.Close()
	}
	return nil, nil, refused(ctx.Err())
}
