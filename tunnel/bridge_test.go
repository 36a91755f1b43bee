// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tunnel

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/saucelabs/proxydemo"
	"github.com/saucelabs/proxydemo/log"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestBridge(t *testing.T) (b *BridgeSession, peer io.ReadWriteCloser) {
	t.Helper()

	outer, peerConn := pipePair(t)
	b, err := NewBridgeSession(context.Background(), outer, proxydemo.DefaultPipeConfig(), log.NopLogger)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	return b, peerConn
}

func TestPumpOnceNothingPending(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b, _ := newTestBridge(t)

	const timeout = 50 * time.Millisecond
	start := time.Now()
	n, err := b.PumpOnce(timeout)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Less(t, time.Since(start), 4*timeout+time.Second)
}

func TestPumpOnceMovesBothWays(t *testing.T) {
	b, peer := newTestBridge(t)

	_, err := b.ClientPipe().Write([]byte("hello"))
	require.NoError(t, err)
	_, err = peer.Write([]byte("world!"))
	require.NoError(t, err)

	moved := 0
	for i := 0; i < 10 && moved < len("hello")+len("world!"); i++ {
		n, err := b.PumpOnce(50 * time.Millisecond)
		require.NoError(t, err)
		moved += n
	}
	require.Equal(t, 11, moved)

	buf := make([]byte, 5)
	_, err = io.ReadFull(peer, buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf))

	buf = make([]byte, 6)
	_, err = io.ReadFull(b.ClientPipe(), buf)
	require.NoError(t, err)
	require.Equal(t, "world!", string(buf))
}

func TestPumpOnceOuterEOF(t *testing.T) {
	b, peer := newTestBridge(t)
	require.NoError(t, peer.Close())

	var err error
	for i := 0; i < 10 && err == nil; i++ {
		_, err = b.PumpOnce(20 * time.Millisecond)
	}
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, b.ClientPipe().SetReadDeadline(time.Now().Add(time.Second)))
	_, err = b.ClientPipe().Read(make([]byte, 1))
	require.ErrorIs(t, err, io.EOF)
}

func TestPumpIdle(t *testing.T) {
	b, _ := newTestBridge(t)

	err := b.Pump(nil, 10*time.Millisecond, 2)
	require.ErrorIs(t, err, ErrIdle)
}

func TestPumpDone(t *testing.T) {
	b, _ := newTestBridge(t)

	done := make(chan struct{})
	close(done)
	require.NoError(t, b.Pump(done, time.Second, 0))
}
