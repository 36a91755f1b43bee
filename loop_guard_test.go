// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/saucelabs/proxydemo/log"
)

type staticResolver map[string][]netip.Addr

func (r staticResolver) LookupNetIP(_ context.Context, _, host string) ([]netip.Addr, error) {
	if addrs, ok := r[host]; ok {
		return addrs, nil
	}
	return nil, errors.New("no such host")
}

func TestLoopGuardAllowed(t *testing.T) {
	proxyIP := netip.MustParseAddr("192.0.2.10")
	const proxyPort = 3128

	g := NewLoopGuard(staticResolver{
		"proxy.example":  {netip.MustParseAddr("192.0.2.10")},
		"other.example":  {netip.MustParseAddr("192.0.2.11")},
		"multi.example":  {netip.MustParseAddr("198.51.100.1"), netip.MustParseAddr("192.0.2.10")},
		"mapped.example": {netip.MustParseAddr("::ffff:192.0.2.10")},
	}, log.NopLogger)

	tests := []struct {
		host string
		port int
		want bool
	}{
		{"192.0.2.10", proxyPort, false},
		{"192.0.2.10", proxyPort + 1, true},
		{"192.0.2.11", proxyPort, true},
		{"proxy.example", proxyPort, false},
		{"proxy.example", 80, true},
		{"other.example", proxyPort, true},
		{"multi.example", proxyPort, false},
		{"mapped.example", proxyPort, false},
		{"unresolvable.example", proxyPort, true},
	}

	for i := range tests {
		tc := &tests[i]
		if got := g.Allowed(context.Background(), tc.host, tc.port, proxyIP, proxyPort); got != tc.want {
			t.Errorf("Allowed(%s, %d): got %v, want %v", tc.host, tc.port, got, tc.want)
		}
	}
}

func TestLoopGuardIPv6Literal(t *testing.T) {
	g := NewLoopGuard(staticResolver{}, log.NopLogger)
	proxyIP := netip.MustParseAddr("::1")

	if g.Allowed(context.Background(), "[::1]", 8080, proxyIP, 8080) {
		t.Fatal("expected loop to be detected")
	}
	if !g.Allowed(context.Background(), "::2", 8080, proxyIP, 8080) {
		t.Fatal("expected other address to be allowed")
	}
}
