// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package version holds build information set with -ldflags -X.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	Version = "devel"
	Time    = ""
	Commit  = ""
)

// UserAgent returns the default User-Agent of the tunnel client.
func UserAgent() string {
	return "proxydemo/" + Version + " (client)"
}

// String returns the build information in a tabular form.
func String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Version:\t%s\n", Version)
	fmt.Fprintf(&sb, "Built time:\t%s\n", Time)
	fmt.Fprintf(&sb, "Git commit:\t%s\n", Commit)
	fmt.Fprintf(&sb, "Go Arch:\t%s\n", runtime.GOARCH)
	fmt.Fprintf(&sb, "Go OS:\t\t%s\n", runtime.GOOS)
	fmt.Fprintf(&sb, "Go Version:\t%s\n", runtime.Version())
	return sb.String()
}
