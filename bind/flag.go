// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bind

import (
	"strings"

	"github.com/mmatczuk/anyflag"
	"github.com/saucelabs/proxydemo"
	"github.com/saucelabs/proxydemo/log"
	"github.com/saucelabs/proxydemo/tunnel"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func ConfigFile(fs *pflag.FlagSet, configFile *string) {
	fs.StringVarP(configFile,
		"config-file", "c", *configFile, "<path>"+
			"Configuration file to load options from. "+
			"The supported formats are: YAML, JSON, TOML and INI. "+
			"The file format is determined by the file extension, if not specified the default format is YAML. "+
			"In INI files options are grouped in sections, e.g. the local_cert key in the [ssl] section sets --ssl-local-cert. "+
			"The following precedence order of configuration sources is used: command flags, environment variables, config file, default values. ")
}

func ProxyServerConfig(fs *pflag.FlagSet, cfg *proxydemo.ProxyServerConfig) {
	fs.StringVarP(&cfg.Address,
		"address", "a", cfg.Address, "<host:port>"+
			"The proxy address to listen on. "+
			"If the host is empty, the proxy will listen on all available interfaces. ")

	schemes := []proxydemo.Scheme{
		proxydemo.HTTPScheme,
		proxydemo.HTTPSScheme,
	}
	fs.Var(anyflag.NewValue[proxydemo.Scheme](cfg.Protocol, &cfg.Protocol,
		anyflag.EnumParser[proxydemo.Scheme](schemes...)),
		"protocol", "<http|https>"+
			"The proxy protocol. "+
			"For https, if TLS certificate is not specified, the proxy will use a self-signed certificate. ")

	fs.StringVar(&cfg.CertFile,
		"tls-cert-file", cfg.CertFile, "<path>"+
			"TLS certificate to use if the proxy protocol is https. "+
			"The file may also hold the private key. ")

	fs.StringVar(&cfg.KeyFile,
		"tls-key-file", cfg.KeyFile, "<path>"+
			"TLS private key to use if the proxy protocol is https. ")

	fs.Var(anyflag.NewValueWithRedact[string](cfg.KeyPassphrase, &cfg.KeyPassphrase, parseString, RedactSecret),
		"tls-key-passphrase", "<passphrase>"+
			"Passphrase of an encrypted TLS private key. ")

	fs.DurationVar(&cfg.HandshakeTimeout,
		"tls-handshake-timeout", cfg.HandshakeTimeout,
		"The maximum amount of time to wait for a client TLS handshake. Zero means no limit. ")

	fs.DurationVar(&cfg.ReadHeaderTimeout,
		"read-header-timeout", cfg.ReadHeaderTimeout,
		"The amount of time allowed to read the request, including a body announced with Content-Length. ")

	fs.IntVar(&cfg.MaxRequestSize,
		"max-request-size", cfg.MaxRequestSize,
		"The maximum size of a request in bytes, larger requests are rejected. ")

	fs.Int64Var(&cfg.ReadLimit,
		"read-limit", cfg.ReadLimit, "<bytes/s>"+
			"Bandwidth limit for reading from each client connection. Zero means no limit. ")

	fs.Int64Var(&cfg.WriteLimit,
		"write-limit", cfg.WriteLimit, "<bytes/s>"+
			"Bandwidth limit for writing to each client connection. Zero means no limit. ")
}

func DialConfig(fs *pflag.FlagSet, cfg *proxydemo.DialConfig) {
	fs.DurationVar(&cfg.DialTimeout,
		"dial-timeout", cfg.DialTimeout,
		"The maximum amount of time a dial will wait for a connect to complete. "+
			"With or without a timeout, the operating system may impose its own earlier timeout. ")

	fs.BoolVar(&cfg.KeepAlive,
		"tcp-keep-alive", cfg.KeepAlive,
		"Enable TCP keep-alive on upstream connections. ")
}

func APIServerConfig(fs *pflag.FlagSet, cfg *proxydemo.HTTPServerConfig) {
	fs.StringVar(&cfg.Addr,
		"api-address", cfg.Addr, "<host:port>"+
			"The API server address to listen on, it serves metrics and health checks. "+
			"If empty, the API server is disabled. ")
}

func PromNamespace(fs *pflag.FlagSet, promNamespace *string) {
	fs.StringVar(promNamespace,
		"prom-namespace", *promNamespace, "<namespace>"+
			"Prometheus namespace to use for metrics. ")
}

func TunnelClientConfig(fs *pflag.FlagSet, cfg *tunnel.Config) {
	fs.DurationVar(&cfg.DialTimeout,
		"dial-timeout", cfg.DialTimeout,
		"The maximum amount of time to wait for the proxy connection. ")

	fs.DurationVar(&cfg.PollInterval,
		"poll-interval", cfg.PollInterval,
		"The maximum amount of time a single read waits for data. ")

	fs.IntVar(&cfg.IdleRetries,
		"idle-retries", cfg.IdleRetries,
		"The number of consecutive polls without data after which the client stops waiting. ")

	fs.DurationVar(&cfg.HandshakeTimeout,
		"handshake-timeout", cfg.HandshakeTimeout,
		"The maximum amount of time to wait for a TLS handshake. Zero means no limit. ")

	fs.IntVar(&cfg.Pipe.Retries,
		"pipe-retries", cfg.Pipe.Retries,
		"The number of attempts to create the loopback socket pair used for TLS over TLS. ")

	fs.StringVar(&cfg.UserAgent,
		"http-user-agent", cfg.UserAgent, "<user-agent>"+
			"The User-Agent header to send, if empty the client name and version is used. ")

	fs.StringVar(&cfg.ProtocolVersion,
		"http-protocol-version", cfg.ProtocolVersion, "<1.0|1.1>"+
			"The HTTP version of the request. ")

	SSLConfig(fs, &cfg.TLS)
}

func SSLConfig(fs *pflag.FlagSet, cfg *tunnel.TLSConfig) {
	fs.StringVar(&cfg.CAFile,
		"ssl-cafile", cfg.CAFile, "<path>"+
			"PEM file with trusted CA certificates. "+
			"If neither --ssl-cafile nor --ssl-capath is set, the system certificate pool is used. ")

	fs.StringVar(&cfg.CAPath,
		"ssl-capath", cfg.CAPath, "<path>"+
			"Directory with PEM files of trusted CA certificates. ")

	fs.StringVar(&cfg.CertFile,
		"ssl-local-cert", cfg.CertFile, "<path>"+
			"Client certificate, the file may also hold the private key. ")

	fs.StringVar(&cfg.KeyFile,
		"ssl-local-pk", cfg.KeyFile, "<path>"+
			"Private key of the client certificate. ")

	fs.Var(anyflag.NewValueWithRedact[string](cfg.KeyPassphrase, &cfg.KeyPassphrase, parseString, RedactSecret),
		"ssl-passphrase", "<passphrase>"+
			"Passphrase of an encrypted client private key. ")

	fs.Var(anyflag.NewValue[tunnel.CryptoMethod](cfg.CryptoMethod, &cfg.CryptoMethod,
		anyflag.EnumParser[tunnel.CryptoMethod](tunnel.CryptoMethods...)),
		"ssl-crypto-method", "<any|tlsv1.2|tlsv1.3>"+
			"TLS versions offered to the proxy and the target. ")

	fs.BoolVar(&cfg.InsecureSkipVerify,
		"insecure", cfg.InsecureSkipVerify,
		"Don't verify the server's certificate chain and host name. "+
			"Enable to work with self-signed certificates. ")
}

func LogConfig(fs *pflag.FlagSet, cfg *log.Config) {
	fs.Var(NewFileFlag(&cfg.File, OpenFileParser(log.DefaultFileFlags, log.DefaultFileMode, log.DefaultDirMode)),
		"log-file", "<path>"+
			"Path to the log file, if empty, logs to the console. ")

	logLevel := []log.Level{
		log.ErrorLevel,
		log.WarnLevel,
		log.InfoLevel,
		log.DebugLevel,
	}
	fs.Var(anyflag.NewValue[log.Level](cfg.Level, &cfg.Level, anyflag.EnumParser[log.Level](logLevel...)),
		"log-level", "<error|warn|info|debug>"+
			"Log level. ")

	logFormat := []log.Format{
		log.TextFormat,
		log.JSONFormat,
	}
	fs.Var(anyflag.NewValue[log.Format](cfg.Format, &cfg.Format, anyflag.EnumParser[log.Format](logFormat...)),
		"log-format", "<text|json>"+
			"Log format. ")
}

func Verbose(fs *pflag.FlagSet, verbose *bool) {
	fs.BoolVarP(verbose,
		"verbose", "v", *verbose,
		"Print debug information, it is a shorthand for --log-level=debug. ")
}

func MarkFlagRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

func AutoMarkFlagFilename(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.HasPrefix(f.Usage, "<path") ||
			strings.HasSuffix(f.Name, "-file") {
			MarkFlagFilename(cmd, f.Name)
		}
	})
}

func MarkFlagFilename(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagFilename(name); err != nil {
			panic(err)
		}
	}
}

func parseString(val string) (string, error) {
	return val, nil
}
