// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package proxydemo provides a minimal HTTP/HTTPS forward proxy server.
// The server accepts plain requests and CONNECT tunnels, rewrites hop-by-hop headers,
// refuses requests that would loop back to itself and relays bytes between the client and the target.
// The tunnel subpackage provides the matching client.
package proxydemo
