// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var envReplacer = strings.NewReplacer(".", "_", "-", "_") //nolint:gochecknoglobals // false positive

// BindAll updates the given command flags with values from the environment variables and config file.
// The supported formats are: YAML, JSON, TOML and INI.
// The file format is determined by the file extension, if not specified the default format is YAML.
// In INI files a flag named "ssl-local-cert" is set by the "local_cert" key in the "[ssl]" section.
// The following precedence order of configuration sources is used: command flags, environment variables, config file, default values.
func BindAll(cmd *cobra.Command, envPrefix, configFileFlagName string) error {
	v := viper.New()

	// Flags
	if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
		return err
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Environment variables
	v.SetEnvKeyReplacer(envReplacer)
	envPrefix = strings.ToUpper(envPrefix)
	envPrefix = envReplacer.Replace(envPrefix)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	// Config file
	if configFileFlagName != "" {
		if f := v.GetString(configFileFlagName); f != "" {
			v.SetConfigType(configType(f))
			v.SetConfigFile(f)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config file %s: %w", f, err)
			}
		}
	}

	// Update cobra flags with values from viper
	updateFs := func(fs *pflag.FlagSet) (ok bool) {
		ok = true
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				return
			}
			val, found := lookup(v, f.Name)
			if !found {
				return
			}
			s := fmt.Sprintf("%v", val)
			s = strings.TrimPrefix(s, "[")
			s = strings.TrimSuffix(s, "]")
			s = strings.NewReplacer(", ", ",", " ", ",").Replace(s)
			if err := fs.Set(f.Name, s); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
				ok = false
			}
		})
		return
	}

	if !updateFs(cmd.PersistentFlags()) {
		return fmt.Errorf("failed to update persistent flags")
	}

	if !updateFs(cmd.Flags()) {
		return fmt.Errorf("failed to update flags")
	}

	return nil
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	case ".ini":
		return "ini"
	default:
		return "yaml"
	}
}

func lookup(v *viper.Viper, flagName string) (any, bool) {
	for _, k := range ConfigKeys(flagName) {
		if v.IsSet(k) {
			return v.Get(k), true
		}
	}
	return nil, false
}

// ConfigKeys returns the config file keys that set the flag.
// Besides the flag name itself, the part before the first dash is treated as a section name
// and the rest of the name is joined with underscores.
func ConfigKeys(flagName string) []string {
	keys := []string{flagName}
	if section, key, ok := strings.Cut(flagName, "-"); ok {
		keys = append(keys, section+"."+strings.ReplaceAll(key, "-", "_"))
	}
	return keys
}
