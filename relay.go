// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"errors"
	"io"
	"net"
	"sync"
	"syscall"

	"github.com/saucelabs/proxydemo/log"
)

var copyBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 32*1024)
		return &b
	},
}

// copier copies one direction of a relay.
type copier struct {
	name string
	dst  net.Conn
	src  net.Conn
}

// relay copies all copiers concurrently and returns when all of them are done.
// When the first copier finishes, every connection is closed so that the other copiers return.
func relay(l log.StructuredLogger, cc ...copier) {
	donec := make(chan struct{}, len(cc))
	for i := range cc {
		go cc[i].copy(l, donec)
	}

	<-donec
	for i := range cc {
		cc[i].close(l)
	}
	for i := 1; i < len(cc); i++ {
		<-donec
	}
}

func (c copier) copy(l log.StructuredLogger, donec chan<- struct{}) {
	bufp := copyBufPool.Get().(*[]byte) //nolint:forcetypeassert // It's *[]byte.
	buf := *bufp
	defer copyBufPool.Put(bufp)

	n, err := io.CopyBuffer(c.dst, c.src, buf)
	if err != nil && !isClosedConnError(err) {
		l.Error("failed to copy tunnel", "name", c.name, "error", err)
	}

	l.Debug("tunnel finished copying", "name", c.name, "bytes", n)
	donec <- struct{}{}
}

func (c copier) close(l log.StructuredLogger) {
	if err := c.dst.Close(); err != nil && !isClosedConnError(err) {
		l.Debug("failed to close tunnel", "name", c.name, "error", err)
	}
}

func isClosedConnError(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
