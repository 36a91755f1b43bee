// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tunnel

import (
	"context"
	"net"

	"golang.org/x/net/proxy"
)

// ContextDialerFunc is a function that implements proxy.Dialer and proxy.ContextDialer.
type ContextDialerFunc func(ctx context.Context, network, addr string) (net.Conn, error)

var (
	_ proxy.Dialer        = ContextDialerFunc(nil)
	_ proxy.ContextDialer = ContextDialerFunc(nil)
)

func (f ContextDialerFunc) Dial(network, addr string) (net.Conn, error) {
	return f(context.Background(), network, addr)
}

func (f ContextDialerFunc) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return f(ctx, network, addr)
}
