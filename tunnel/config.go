// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tunnel

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/saucelabs/proxydemo"
)

// CryptoMethod selects the TLS versions offered by the client.
type CryptoMethod string

const (
	CryptoAny   CryptoMethod = "any"
	CryptoTLS12 CryptoMethod = "tlsv1.2"
	CryptoTLS13 CryptoMethod = "tlsv1.3"
)

func (m CryptoMethod) String() string {
	return string(m)
}

// CryptoMethods lists the supported values, it is used for flag parsing.
var CryptoMethods = []CryptoMethod{CryptoAny, CryptoTLS12, CryptoTLS13}

type TLSConfig struct {
	// CAFile and CAPath point to PEM encoded trusted certificates.
	// If both are empty the system pool is used.
	CAFile string
	CAPath string

	// CertFile and KeyFile hold the client certificate, KeyFile may be empty if the key is in CertFile.
	CertFile      string
	KeyFile       string
	KeyPassphrase string

	CryptoMethod CryptoMethod

	// InsecureSkipVerify disables certificate verification on both the proxy and the target connection.
	InsecureSkipVerify bool
}

// Config configures the tunnel client.
// The poll parameters bound every wait, so tests can run with short timeouts.
type Config struct {
	// DialTimeout bounds connecting to the proxy.
	DialTimeout time.Duration

	// PollInterval is the maximum time a single read or pump cycle waits for data.
	PollInterval time.Duration

	// IdleRetries is the number of consecutive empty polls tolerated before giving up.
	IdleRetries int

	// HandshakeTimeout bounds each TLS handshake.
	HandshakeTimeout time.Duration

	Pipe proxydemo.PipeConfig

	UserAgent       string
	ProtocolVersion string

	TLS TLSConfig
}

func DefaultConfig() *Config {
	return &Config{
		DialTimeout:      30 * time.Second,
		PollInterval:     200 * time.Millisecond,
		IdleRetries:      10,
		HandshakeTimeout: 30 * time.Second,
		Pipe:             *proxydemo.DefaultPipeConfig(),
		ProtocolVersion:  "1.0",
		TLS: TLSConfig{
			CryptoMethod: CryptoAny,
		},
	}
}

func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.IdleRetries < 0 {
		return errors.New("idle retries must not be negative")
	}
	if c.DialTimeout < 0 || c.HandshakeTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	switch c.ProtocolVersion {
	case "1.0", "1.1":
	default:
		return fmt.Errorf("unsupported HTTP protocol version %q", c.ProtocolVersion)
	}
	if _, _, err := c.TLS.CryptoMethod.versions(); err != nil {
		return err
	}
	return c.Pipe.Validate()
}

func (m CryptoMethod) versions() (minVersion, maxVersion uint16, err error) {
	switch m {
	case "", CryptoAny:
		return tls.VersionTLS12, 0, nil
	case CryptoTLS12:
		return tls.VersionTLS12, tls.VersionTLS12, nil
	case CryptoTLS13:
		return tls.VersionTLS13, tls.VersionTLS13, nil
	default:
		return 0, 0, fmt.Errorf("unsupported crypto method %q", m)
	}
}

// clientTLSConfig builds the base TLS configuration, ServerName is set per connection.
func (c *TLSConfig) clientTLSConfig() (*tls.Config, error) {
	minVersion, maxVersion, err := c.CryptoMethod.versions()
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		MinVersion:         minVersion,
		MaxVersion:         maxVersion,
		InsecureSkipVerify: c.InsecureSkipVerify, //nolint:gosec // user option
	}

	if !c.InsecureSkipVerify {
		pool, err := proxydemo.LoadCertPool(c.CAFile, c.CAPath)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}

	if c.CertFile != "" {
		cert, err := proxydemo.LoadX509KeyPair(c.CertFile, c.KeyFile, c.KeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}
