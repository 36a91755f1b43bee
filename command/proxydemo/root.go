// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"github.com/saucelabs/proxydemo/bind"
	"github.com/saucelabs/proxydemo/command/client"
	"github.com/saucelabs/proxydemo/command/ready"
	"github.com/saucelabs/proxydemo/command/server"
	"github.com/saucelabs/proxydemo/command/version"
	"github.com/saucelabs/proxydemo/utils/cobrautil"
	"github.com/spf13/cobra"
)

const (
	EnvPrefix          = "PROXYDEMO"
	ConfigFileFlagName = "config-file"
)

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxydemo",
		Short: "HTTP (forward) proxy server and tunnel client",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cobrautil.BindAll(cmd, EnvPrefix, ConfigFileFlagName)
		},
		SilenceUsage: true,
	}
	bind.ConfigFile(cmd.PersistentFlags(), new(string))

	cmd.AddCommand(
		server.Command(),
		client.Command(),
		ready.Command(),
		version.Command(),
	)

	cobrautil.VisitAll(cmd, func(c *cobra.Command) {
		cobrautil.DefaultLong(c)
		if c != cmd {
			cobrautil.AppendEnvToUsage(c, EnvPrefix)
		}
	})
	cobrautil.NoHelpSubcommand(cmd)

	return cmd
}
