// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/saucelabs/proxydemo/utils/certutil"
)

type TLSServerConfig struct {
	// CertFile is the path to the TLS certificate.
	CertFile string

	// KeyFile is the path to the TLS private key of the certificate.
	KeyFile string

	// KeyPassphrase decrypts KeyFile if it is an encrypted PEM block.
	KeyPassphrase string

	// HandshakeTimeout bounds the TLS handshake with a client, zero means no timeout.
	HandshakeTimeout time.Duration
}

func DefaultTLSServerConfig() *TLSServerConfig {
	return &TLSServerConfig{
		HandshakeTimeout: 10 * time.Second,
	}
}

func (c *TLSServerConfig) Validate() error {
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("both certificate and key files must be set")
	}
	if c.HandshakeTimeout < 0 {
		return errors.New("TLS handshake timeout must not be negative")
	}
	return nil
}

// ConfigureTLSConfig loads the server certificate into dst.
// If no files are configured a self-signed certificate is generated.
func (c *TLSServerConfig) ConfigureTLSConfig(dst *tls.Config) error {
	var (
		cert tls.Certificate
		err  error
	)

	if c.CertFile == "" && c.KeyFile == "" {
		cert, err = certutil.RSASelfSignedCert().Gen()
	} else {
		cert, err = LoadX509KeyPair(c.CertFile, c.KeyFile, c.KeyPassphrase)
	}

	if err == nil {
		dst.Certificates = append(dst.Certificates, cert)
	}
	return err
}

// LoadX509KeyPair reads a PEM certificate and private key.
// If passphrase is set and the key block is encrypted, it is decrypted first.
func LoadX509KeyPair(certFile, keyFile, passphrase string) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read certificate: %w", err)
	}
	// The certificate and the key may live in the same file.
	if keyFile == "" {
		keyFile = certFile
	}
	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read private key: %w", err)
	}

	if passphrase != "" {
		if keyPEM, err = decryptPEMKey(keyPEM, passphrase); err != nil {
			return tls.Certificate{}, err
		}
	}

	return tls.X509KeyPair(certPEM, keyPEM)
}

func decryptPEMKey(data []byte, passphrase string) ([]byte, error) {
	var out []byte
	for {
		var b *pem.Block
		b, data = pem.Decode(data)
		if b == nil {
			break
		}
		//nolint:staticcheck // legacy encrypted PEM keys are what OpenSSL based tools produce
		if x509.IsEncryptedPEMBlock(b) {
			der, err := x509.DecryptPEMBlock(b, []byte(passphrase))
			if err != nil {
				return nil, fmt.Errorf("decrypt private key: %w", err)
			}
			b = &pem.Block{Type: b.Type, Bytes: der}
		}
		out = append(out, pem.EncodeToMemory(b)...)
	}
	if len(out) == 0 {
		return nil, errors.New("no PEM data found in private key file")
	}
	return out, nil
}

// LoadCertPool returns a pool with certificates from caFile and every PEM file in caPath.
// If both are empty the system pool is returned.
func LoadCertPool(caFile, caPath string) (*x509.CertPool, error) {
	if caFile == "" && caPath == "" {
		return x509.SystemCertPool()
	}

	pool := x509.NewCertPool()

	if caFile != "" {
		b, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		if !pool.AppendCertsFromPEM(b) {
			return nil, fmt.Errorf("no certificates found in %s", caFile)
		}
	}

	if caPath != "" {
		entries, err := os.ReadDir(caPath)
		if err != nil {
			return nil, fmt.Errorf("read CA path: %w", err)
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			b, err := os.ReadFile(filepath.Join(caPath, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("read CA path: %w", err)
			}
			pool.AppendCertsFromPEM(b)
		}
	}

	return pool, nil
}
