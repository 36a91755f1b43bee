// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/saucelabs/proxydemo"
	"github.com/saucelabs/proxydemo/bind"
	"github.com/saucelabs/proxydemo/internal/version"
	"github.com/saucelabs/proxydemo/log"
	"github.com/saucelabs/proxydemo/log/slog"
	"github.com/saucelabs/proxydemo/runctx"
	"github.com/saucelabs/proxydemo/utils/cobrautil"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

type command struct {
	promReg         *prometheus.Registry
	promNamespace   string
	dialConfig      *proxydemo.DialConfig
	proxyConfig     *proxydemo.ProxyServerConfig
	apiServerConfig *proxydemo.HTTPServerConfig
	logConfig       *log.Config
	verbose         bool

	dryRun bool
}

func (c *command) runE(cmd *cobra.Command, _ []string) (cmdErr error) {
	if f := c.logConfig.File; f != nil {
		defer f.Close()
	}
	if c.verbose {
		c.logConfig.Level = log.DebugLevel
	}

	c.dialConfig.PromNamespace = c.promNamespace
	c.proxyConfig.PromNamespace = c.promNamespace

	onError, err := c.registerErrorsMetric()
	if err != nil {
		return fmt.Errorf("register errors metric: %w", err)
	}
	logger := slog.New(c.logConfig, slog.WithOnError(onError))

	defer func() {
		if cmdErr != nil {
			logger.Error("fatal error exiting", "error", cmdErr)
			cmd.SilenceErrors = true
		}
	}()

	logger.Info("proxydemo server", "version", version.Version, "commit", version.Commit)
	logger.Debug("resource limits", "GOMAXPROCS", runtime.GOMAXPROCS(0), "GOMEMLIMIT", os.Getenv("GOMEMLIMIT"))

	cfg, err := cobrautil.FlagsDescriber{
		Format:     cobrautil.Plain,
		ShowHidden: false,
	}.DescribeFlags(cmd.Flags())
	if err != nil {
		return err
	}
	logger.Debug("configuration\n" + cfg)

	if err := c.dialConfig.Validate(); err != nil {
		return fmt.Errorf("dial config: %w", err)
	}
	if err := multierr.Combine(
		c.registerProcMetrics(),
		c.registerVersionMetric(),
	); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	p, err := proxydemo.NewProxyServer(c.proxyConfig, proxydemo.NewDialer(c.dialConfig), logger.Named("proxy"))
	if err != nil {
		return err
	}

	var a *proxydemo.HTTPServer
	if c.apiServerConfig.Addr != "" {
		h := proxydemo.NewAPIHandler(c.promReg, p, cfg)
		a, err = proxydemo.NewHTTPServer(c.apiServerConfig, h, logger.Named("api"))
		if err != nil {
			return err
		}
	}

	if c.dryRun {
		return nil
	}

	g := runctx.NewGroup()
	if err := p.Listen(); err != nil {
		return err
	}
	g.Add(p.Run)
	if a != nil {
		if err := a.Listen(); err != nil {
			return err
		}
		g.Add(a.Run)
	}

	return g.RunContext(cmd.Context())
}

func (c *command) registerErrorsMetric() (func(name string), error) {
	m := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.promNamespace,
		Name:      "errors_total",
		Help:      "Number of errors logged",
	}, []string{"name"})

	if err := c.promReg.Register(m); err != nil {
		return nil, err
	}

	return func(name string) {
		m.WithLabelValues(name).Inc()
	}, nil
}

func (c *command) registerProcMetrics() error {
	return multierr.Combine(
		// ProcessCollector is only available in Linux and Windows.
		c.promReg.Register(collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{Namespace: c.promNamespace})),
		c.promReg.Register(collectors.NewGoCollector()),
	)
}

func (c *command) registerVersionMetric() error {
	return c.promReg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.promNamespace,
		Name:      "version",
		Help:      "proxydemo version, value is always 1",
		ConstLabels: prometheus.Labels{
			"version": version.Version,
			"commit":  version.Commit,
			"time":    version.Time,
		},
	}, func() float64 {
		return 1
	}))
}

const promNs = "proxydemo"

func Command() *cobra.Command {
	c := makeCommand()

	cmd := &cobra.Command{
		Use:     "server [--address <host:port>] [--protocol <http|https>] [flags]",
		Short:   "Start HTTP (forward) proxy server",
		Long:    long,
		Example: example,
		Args:    cobra.NoArgs,
		RunE:    c.runE,
	}

	fs := cmd.Flags()
	bind.ProxyServerConfig(fs, c.proxyConfig)
	bind.DialConfig(fs, c.dialConfig)
	bind.APIServerConfig(fs, c.apiServerConfig)
	bind.PromNamespace(fs, &c.promNamespace)
	bind.LogConfig(fs, c.logConfig)
	bind.Verbose(fs, &c.verbose)
	bind.AutoMarkFlagFilename(cmd)

	fs.BoolVar(&c.dryRun, "dry-run", false, "Validate the configuration and exit.")
	if err := fs.MarkHidden("dry-run"); err != nil {
		panic(err)
	}

	return cmd
}

// Metrics returns the registry with all the server metrics registered.
func Metrics() (*prometheus.Registry, error) {
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return nil, err
	}

	c := makeCommand()
	c.logConfig = &log.Config{
		Level:  log.ErrorLevel,
		Format: log.TextFormat,
		File:   devNull,
	}
	c.dryRun = true

	cmd := &cobra.Command{
		Use:                "server",
		RunE:               c.runE,
		DisableFlagParsing: true,
	}
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	if err := cmd.Execute(); err != nil {
		return nil, err
	}

	return c.promReg, nil
}

func makeCommand() command {
	c := command{
		promReg:         prometheus.NewRegistry(),
		promNamespace:   promNs,
		dialConfig:      proxydemo.DefaultDialConfig(),
		proxyConfig:     proxydemo.DefaultProxyServerConfig(),
		apiServerConfig: proxydemo.DefaultHTTPServerConfig(),
		logConfig:       log.DefaultConfig(),
	}
	c.dialConfig.PromRegistry = c.promReg
	c.proxyConfig.PromRegistry = c.promReg

	return c
}

const long = `The proxy accepts plain HTTP requests and CONNECT tunnels.
Plain requests are rewritten to HTTP/1.0 and forwarded to the target, CONNECT requests are answered with 200 and relayed byte for byte.
Requests that would loop back to the proxy and CONNECT requests to port 25 are rejected with 400.
If you start an HTTPS proxy and you don't provide a certificate, the server will generate a self-signed certificate on startup.
`

const example = `  # HTTP proxy on localhost
  proxydemo server --address localhost:3128

  # HTTPS proxy with a certificate and an encrypted key
  proxydemo server --protocol https --tls-cert-file cert.pem --tls-key-file key.pem --tls-key-passphrase secret

  # HTTP proxy with debug logging and API server on port 10000
  proxydemo server --verbose --api-address localhost:10000
`
