// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package httpreq

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

const defaultPort = 80

// Target is the upstream a request is forwarded to.
type Target struct {
	Host string
	Port int
	Path string
}

// Addr returns host:port suitable for dialing.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// HostHeader returns the Host header value, the port is omitted when it is 80.
func (t Target) HostHeader() string {
	if t.Port == defaultPort {
		if strings.Contains(t.Host, ":") {
			return "[" + t.Host + "]"
		}
		return t.Host
	}
	return t.Addr()
}

// ParseConnectTarget parses the authority-form target of a CONNECT request.
// It requires an explicit port and rejects a scheme.
func ParseConnectTarget(uri string) (Target, error) {
	if strings.Contains(uri, "://") {
		return Target{}, parseError(ErrConnectTarget, uri)
	}
	host, port, err := splitHostPort(uri)
	if err != nil || port == 0 {
		return Target{}, parseError(ErrConnectTarget, uri)
	}
	return Target{Host: host, Port: port}, nil
}

// ParseTarget resolves the target of a non-CONNECT request.
// Absolute-form targets use their own authority, origin-form targets use the Host header.
// The port defaults to 80.
func ParseTarget(uri, hostHeader string) (Target, error) {
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" && u.Host != "" {
		host, port, err := splitHostPort(u.Host)
		if err != nil {
			return Target{}, parseError(ErrTarget, uri)
		}
		if port == 0 {
			port = defaultPort
		}

		path := u.EscapedPath()
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
		if path == "" {
			path = "/"
		}

		return Target{Host: host, Port: port, Path: path}, nil
	}

	if hostHeader == "" {
		return Target{}, parseError(ErrMissingHost, "")
	}
	host, port, err := splitHostPort(hostHeader)
	if err != nil {
		return Target{}, parseError(ErrTarget, hostHeader)
	}
	if port == 0 {
		port = defaultPort
	}

	return Target{Host: host, Port: port, Path: uri}, nil
}

// splitHostPort splits host[:port], port is 0 when absent.
// Bracketed IPv6 literals are accepted with or without a port.
func splitHostPort(hostport string) (host string, port int, err error) {
	if hostport == "" {
		return "", 0, ErrTarget
	}

	if h, p, serr := net.SplitHostPort(hostport); serr == nil {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 || h == "" {
			return "", 0, ErrTarget
		}
		return h, n, nil
	}

	if strings.HasPrefix(hostport, "[") {
		if !strings.HasSuffix(hostport, "]") {
			return "", 0, ErrTarget
		}
		hostport = hostport[1 : len(hostport)-1]
	} else if strings.Contains(hostport, ":") {
		return "", 0, ErrTarget
	}

	return hostport, 0, nil
}
