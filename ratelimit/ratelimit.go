// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package ratelimit limits the bandwidth of accepted connections.
package ratelimit

import (
	"golang.org/x/time/rate"
)

// minBurst must be bigger than the biggest single read or write.
const minBurst = 4 * 1024 * 1024

// newLimiter returns a token bucket limiter for bandwidth bytes per second.
// The burst grows with the bandwidth above 256MiB/s.
func newLimiter(bandwidth int64) *rate.Limiter {
	if bandwidth <= 0 {
		return nil
	}
	burst := bandwidth / 64
	if burst < minBurst {
		burst = minBurst
	}
	return rate.NewLimiter(rate.Limit(bandwidth), int(burst))
}
