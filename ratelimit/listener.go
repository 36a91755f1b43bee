// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ratelimit

import (
	"net"

	"golang.org/x/time/rate"
)

// Listener shares one pair of limiters between all accepted connections.
type Listener struct {
	net.Listener
	rx *rate.Limiter
	tx *rate.Limiter
}

func NewListener(l net.Listener, rxBandwidth, txBandwidth int64) *Listener {
	return &Listener{
		Listener: l,
		rx:       newLimiter(rxBandwidth),
		tx:       newLimiter(txBandwidth),
	}
}

func (l *Listener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	return &Conn{
		Conn: c,
		rx:   l.rx,
		tx:   l.tx,
	}, nil
}
