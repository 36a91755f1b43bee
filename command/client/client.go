// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package client

import (
	"errors"
	"fmt"
	"io"

	"github.com/saucelabs/proxydemo/bind"
	"github.com/saucelabs/proxydemo/log"
	"github.com/saucelabs/proxydemo/log/slog"
	"github.com/saucelabs/proxydemo/tunnel"
	"github.com/spf13/cobra"
)

type command struct {
	proxyURL     string
	targetURL    string
	tunnelConfig *tunnel.Config
	logConfig    *log.Config
	verbose      bool
}

func (c *command) runE(cmd *cobra.Command, _ []string) error {
	if f := c.logConfig.File; f != nil {
		defer f.Close()
	}
	if c.verbose {
		c.logConfig.Level = log.DebugLevel
	}

	var w io.Writer = cmd.ErrOrStderr()
	if c.logConfig.File != nil {
		w = c.logConfig.File
	}
	logger := slog.NewWithWriter(w, c.logConfig, slog.WithAttributes("target", c.targetURL))

	resp, err := c.do(cmd, logger)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "FAILED %s\n", err)
		cmd.SilenceErrors = true
		return err
	}

	_, err = cmd.OutOrStdout().Write(resp)
	return err
}

func (c *command) do(cmd *cobra.Command, logger *slog.Logger) ([]byte, error) {
	if c.proxyURL == "" {
		return nil, errors.New("proxy URL is required")
	}
	if c.targetURL == "" {
		return nil, errors.New("target URL is required")
	}

	s, err := tunnel.NewSession(c.proxyURL, c.targetURL)
	if err != nil {
		return nil, err
	}

	tc, err := tunnel.NewClient(c.tunnelConfig, logger.Named("client"))
	if err != nil {
		return nil, err
	}

	return tc.Do(cmd.Context(), s)
}

func Command() *cobra.Command {
	c := command{
		tunnelConfig: tunnel.DefaultConfig(),
		logConfig:    log.DefaultConfig(),
	}

	cmd := &cobra.Command{
		Use:     "client --proxy <url> --target <url> [flags]",
		Short:   "Send a GET request through a proxy",
		Long:    long,
		Example: example,
		Args:    cobra.NoArgs,
		RunE:    c.runE,
	}

	fs := cmd.Flags()
	fs.StringVarP(&c.proxyURL,
		"proxy", "x", c.proxyURL, "<http|https://host[:port]>"+
			"The proxy to send the request through. ")
	fs.StringVarP(&c.targetURL,
		"target", "t", c.targetURL, "<http|https://host[:port][/path]>"+
			"The URL to request. "+
			"For https targets a CONNECT tunnel is opened and TLS is negotiated with the target through the proxy. ")
	bind.TunnelClientConfig(fs, c.tunnelConfig)
	bind.LogConfig(fs, c.logConfig)
	bind.Verbose(fs, &c.verbose)
	bind.AutoMarkFlagFilename(cmd)

	return cmd
}

const long = `The raw response is printed to the standard output.
For https targets the client opens a CONNECT tunnel and negotiates TLS end to end.
If the proxy is also reached over TLS, the inner TLS session is bridged through a pair of loopback sockets.
On failure the client prints FAILED followed by the reason and exits with status 1.
`

const example = `  # Plain request through a local proxy
  proxydemo client --proxy http://localhost:3128 --target http://example.com/

  # TLS over TLS with a custom CA
  proxydemo client --proxy https://localhost:3129 --target https://example.com/ --ssl-cafile ca.pem --verbose
`
