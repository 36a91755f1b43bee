// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tunnel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		in   string
		host string
		err  bool
	}{
		{in: "http://example.com", host: "example.com:80"},
		{in: "https://example.com/path?q=1", host: "example.com:443"},
		{in: "http://example.com:8080", host: "example.com:8080"},
		{in: "https://[::1]:8443/", host: "[::1]:8443"},
		{in: "https://[::1]/", host: "[::1]:443"},
		{in: "ftp://example.com", err: true},
		{in: "example.com", err: true},
		{in: "http://", err: true},
		{in: "http://example.com:0", err: true},
		{in: "http://example.com:70000", err: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			u, err := ParseURL(tc.in)
			if tc.err {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid url")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.host, u.Host)
		})
	}
}

func TestNewSession(t *testing.T) {
	s, err := NewSession("https://proxy:3128", "http://example.com/a")
	require.NoError(t, err)
	require.True(t, s.SecureProxy)
	require.False(t, s.SecureHTTP)
	require.Equal(t, "proxy:3128", s.ProxyAddr())
	require.Equal(t, "example.com:80", s.TargetAddr())
	require.Equal(t, PhaseIdle, s.Phase)

	s, err = NewSession("http://proxy", "https://example.com")
	require.NoError(t, err)
	require.False(t, s.SecureProxy)
	require.True(t, s.SecureHTTP)
	require.Equal(t, "proxy:80", s.ProxyAddr())

	_, err = NewSession("socks5://proxy:1080", "http://example.com")
	require.ErrorContains(t, err, "proxy: invalid url")

	_, err = NewSession("http://proxy:3128", "gopher://example.com")
	require.ErrorContains(t, err, "target: invalid url")
}

func TestRequestURI(t *testing.T) {
	s, err := NewSession("http://proxy", "http://example.com")
	require.NoError(t, err)
	require.Equal(t, "http://example.com/", s.requestURI())
	require.Equal(t, "example.com", s.hostHeader())

	s, err = NewSession("http://proxy", "http://example.com:8080/x")
	require.NoError(t, err)
	require.Equal(t, "http://example.com:8080/x", s.requestURI())
	require.Equal(t, "example.com:8080", s.hostHeader())

	s, err = NewSession("http://proxy", "http://[::1]/")
	require.NoError(t, err)
	require.Equal(t, "http://[::1]/", s.requestURI())
	require.Equal(t, "[::1]", s.hostHeader())

	s, err = NewSession("http://proxy", "https://example.com/a/b?c=d")
	require.NoError(t, err)
	require.Equal(t, "/a/b?c=d", s.requestURI())
	require.Equal(t, "example.com", s.hostHeader())
	require.Equal(t, "example.com:443", s.TargetAddr())
}

func TestPhaseString(t *testing.T) {
	require.Equal(t, "idle", PhaseIdle.String())
	require.Equal(t, "tls-handshaking", PhaseTLSHandshaking.String())
	require.Equal(t, "failed", PhaseFailed.String())
	require.Equal(t, "Phase(42)", Phase(42).String())
}
