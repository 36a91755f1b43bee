// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"errors"

	"github.com/saucelabs/proxydemo/internal/proxyerr"
)

// ErrorKind classifies errors returned by the proxy server and the tunnel client.
type ErrorKind = proxyerr.Kind

const (
	ParseError      = proxyerr.Parse
	PolicyRejection = proxyerr.Policy
	ConnectError    = proxyerr.Connect
	ProtocolError   = proxyerr.Protocol
)

// Error is the error type carrying an ErrorKind.
type Error = proxyerr.Error

var (
	// ErrLoop is returned when the request target resolves to the proxy listening address.
	ErrLoop = errors.New("request would loop back to the proxy")

	// ErrRequestTooLarge is returned when the header section does not fit in MaxRequestSize.
	ErrRequestTooLarge = errors.New("request too large")
)

// NewError returns an error of the given kind wrapping err.
func NewError(kind ErrorKind, err error, message string) error {
	return proxyerr.New(kind, err, message)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return proxyerr.Is(err, kind)
}
