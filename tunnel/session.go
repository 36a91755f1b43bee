// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tunnel

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Phase is the progress of a single client request.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseProxyConnected
	PhaseDirectSend
	PhaseConnectSend
	PhaseConnectAck
	PhaseBridgeSetup
	PhaseTLSHandshaking
	PhaseTLSEstablished
	PhaseRequestSend
	PhaseResponseWait
	PhaseClosed
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:           "idle",
	PhaseProxyConnected: "proxy-connected",
	PhaseDirectSend:     "direct-send",
	PhaseConnectSend:    "connect-send",
	PhaseConnectAck:     "connect-ack",
	PhaseBridgeSetup:    "bridge-setup",
	PhaseTLSHandshaking: "tls-handshaking",
	PhaseTLSEstablished: "tls-established",
	PhaseRequestSend:    "request-send",
	PhaseResponseWait:   "response-wait",
	PhaseClosed:         "closed",
	PhaseFailed:         "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "Phase(" + strconv.Itoa(int(p)) + ")"
	}
	return phaseNames[p]
}

// Session describes one request sent through a proxy.
type Session struct {
	ProxyURL  *url.URL
	TargetURL *url.URL

	// SecureProxy is set when the proxy is reached over TLS.
	SecureProxy bool
	// SecureHTTP is set when the target requires TLS, the request is then sent through a CONNECT tunnel.
	SecureHTTP bool

	Phase Phase
}

// NewSession validates the proxy and target URLs.
// Both must be http or https URLs with a host, a missing port defaults to the scheme port.
func NewSession(proxyURL, targetURL string) (*Session, error) {
	p, err := ParseURL(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}
	t, err := ParseURL(targetURL)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	return &Session{
		ProxyURL:    p,
		TargetURL:   t,
		SecureProxy: p.Scheme == "https",
		SecureHTTP:  t.Scheme == "https",
	}, nil
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// ParseURL parses an http or https URL and sets the default port if missing.
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %s: %w", raw, err)
	}
	if u.Host == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid url: %s: missing host", raw)
	}

	defaultPort, ok := defaultPorts[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("invalid url: %s: unsupported scheme %q", raw, u.Scheme)
	}

	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), defaultPort)
	} else if p, err := strconv.Atoi(u.Port()); err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid url: %s: bad port", raw)
	}

	return u, nil
}

// TargetAddr returns the target host:port.
func (s *Session) TargetAddr() string {
	return s.TargetURL.Host
}

// ProxyAddr returns the proxy host:port.
func (s *Session) ProxyAddr() string {
	return s.ProxyURL.Host
}

// hostHeader is the Host header value of the request, the port is omitted when it is the scheme default.
func (s *Session) hostHeader() string {
	u := s.TargetURL
	if u.Port() == defaultPorts[u.Scheme] {
		if strings.Contains(u.Hostname(), ":") {
			return "[" + u.Hostname() + "]"
		}
		return u.Hostname()
	}
	return u.Host
}

// requestURI is the target sent in the request line.
// Plain requests use the absolute form, requests inside a tunnel use the origin form.
func (s *Session) requestURI() string {
	if s.SecureHTTP {
		return s.TargetURL.RequestURI()
	}
	u := *s.TargetURL
	u.Host = s.hostHeader()
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
