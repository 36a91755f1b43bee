// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"context"
	"net"
	"net/netip"
	"strings"

	"github.com/saucelabs/proxydemo/log"
)

// Resolver resolves host names for the loop check, *net.Resolver implements it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// LoopGuard refuses targets that point back at the proxy listening address.
type LoopGuard struct {
	resolver Resolver
	log      log.StructuredLogger
}

func NewLoopGuard(r Resolver, log log.StructuredLogger) *LoopGuard {
	if r == nil {
		r = net.DefaultResolver
	}
	return &LoopGuard{
		resolver: r,
		log:      log,
	}
}

// Allowed reports whether host:port may be dialed by a proxy reachable at proxyIP:proxyPort.
// The target is refused only if it resolves to proxyIP and port equals proxyPort.
// If the host cannot be resolved the target is allowed and the dial reports the failure.
func (g *LoopGuard) Allowed(ctx context.Context, host string, port int, proxyIP netip.Addr, proxyPort int) bool {
	if port != proxyPort {
		return true
	}

	addrs, err := g.resolve(ctx, host)
	if err != nil {
		g.log.Debug("loop check skipped, cannot resolve host", "host", host, "error", err)
		return true
	}

	proxyIP = proxyIP.Unmap()
	for _, a := range addrs {
		if a.Unmap() == proxyIP {
			return false
		}
	}

	return true
}

func (g *LoopGuard) resolve(ctx context.Context, host string) ([]netip.Addr, error) {
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if ip, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{ip}, nil
	}
	return g.resolver.LookupNetIP(ctx, "ip", host)
}
