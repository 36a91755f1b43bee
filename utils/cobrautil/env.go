// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// AppendEnvToUsage appends the environment variable name to the usage string of each Cobra flag.
func AppendEnvToUsage(cmd *cobra.Command, envPrefix string) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Usage += fmt.Sprintf(" (env %s)", EnvName(envPrefix, f.Name))
	})
}

// EnvName returns the environment variable that sets the flag.
func EnvName(envPrefix, flagName string) string {
	name := flagName
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ToUpper(name)
	return fmt.Sprintf("%s_%s", strings.ToUpper(envPrefix), name)
}
