// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package httpreq

import (
	"errors"

	"github.com/saucelabs/proxydemo/internal/proxyerr"
)

var (
	ErrIncomplete    = errors.New("incomplete request")
	ErrRequestLine   = errors.New("malformed request line")
	ErrMethodCase    = errors.New("request method case")
	ErrVersion       = errors.New("unexpected HTTP version")
	ErrMultipleHost  = errors.New("multiple Host headers")
	ErrMissingHost   = errors.New("missing Host header")
	ErrTarget        = errors.New("invalid request target")
	ErrConnectTarget = errors.New("invalid CONNECT target")
	ErrConnectBody   = errors.New("CONNECT request with body")
	ErrPort25        = errors.New("CONNECT to port 25 is not allowed")
)

func parseError(err error, msg string) error {
	return proxyerr.New(proxyerr.Parse, err, msg)
}

func policyError(err error, msg string) error {
	return proxyerr.New(proxyerr.Policy, err, msg)
}
