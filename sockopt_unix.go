// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build unix

package proxydemo

import (
	"fmt"
	"os"
	"syscall"
)

// enableTCPKeepAlive is a syscall.RawConn control function, failures are not fatal.
func enableTCPKeepAlive(fd uintptr) {
	err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_KEEPALIVE, 1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "proxydemo: setsockopt SO_KEEPALIVE: %v\n", err)
	}
}
