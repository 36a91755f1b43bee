// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package proxyerr defines the error taxonomy shared by the proxy server and the tunnel client.
// Every error carries a Kind, an optional diagnostic message and an optional wrapped cause.
package proxyerr

import (
	"errors"
	"strings"
)

type Kind int

const (
	// Parse is a malformed request: bad request line, multiple Host headers, missing separator.
	Parse Kind = 1 + iota
	// Policy is a request that parsed fine but is not allowed, e.g. a loop or CONNECT to port 25.
	Policy
	// Connect is a socket, dial or TLS failure.
	Connect
	// Protocol is an unexpected response from the peer.
	Protocol
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "parse error"
	case Policy:
		return "policy rejection"
	case Connect:
		return "connect error"
	case Protocol:
		return "protocol error"
	default:
		return "unknown error"
	}
}

type Error struct {
	Kind Kind

	// Message is a human readable diagnostic, it may be empty.
	Message string

	// Err optionally wraps the original error.
	Err error
}

func New(kind Kind, err error, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err's chain contains an *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
