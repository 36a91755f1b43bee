// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package httpreq turns a raw proxy request buffer into a validated forwarding decision.
// It splits the buffer into header lines, validates the request line, strips hop-by-hop headers
// and rebuilds an HTTP/1.0 request for the upstream.
package httpreq
