// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"github.com/spf13/cobra"
)

// DefaultLong sets the long description to the short description if the long description is empty.
func DefaultLong(cmd *cobra.Command) {
	if cmd.Short == "" {
		return
	}

	if cmd.Long == "" {
		cmd.Long = cmd.Short + "."
	} else {
		cmd.Long = cmd.Short + ".\n\n" + cmd.Long
	}
}

// NoHelpSubcommand hides the help subcommand, --help is still available.
func NoHelpSubcommand(cmd *cobra.Command) {
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
}

// VisitAll calls fn for cmd and all of its subcommands.
func VisitAll(cmd *cobra.Command, fn func(cmd *cobra.Command)) {
	fn(cmd)
	for _, c := range cmd.Commands() {
		VisitAll(c, fn)
	}
}
