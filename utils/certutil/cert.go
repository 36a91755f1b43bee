// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package certutil generates throwaway certificates for the https proxy listener and tests.
package certutil

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// SelfSignedCert specifies a self-signed server certificate.
type SelfSignedCert struct {
	Hosts        []string
	Organization string
	ValidFrom    time.Time
	ValidFor     time.Duration
	RsaBits      int
	// ECDSA selects a P-256 key instead of RSA.
	ECDSA bool
}

func loopbackHosts() []string {
	return []string{"localhost", "127.0.0.1", "::1"}
}

// RSASelfSignedCert returns a spec for a 2048-bit RSA certificate valid for loopback addresses.
func RSASelfSignedCert() *SelfSignedCert {
	return &SelfSignedCert{
		Hosts:        loopbackHosts(),
		Organization: "proxydemo",
		ValidFrom:    time.Now().Add(-time.Minute),
		ValidFor:     24 * time.Hour,
		RsaBits:      2048,
	}
}

func ECDSASelfSignedCert() *SelfSignedCert {
	c := RSASelfSignedCert()
	c.RsaBits = 0
	c.ECDSA = true
	return c
}

// Gen generates the certificate and its private key.
func (c *SelfSignedCert) Gen() (tls.Certificate, error) {
	var cert tls.Certificate

	priv, err := c.generateKey()
	if err != nil {
		return cert, fmt.Errorf("generate private key: %w", err)
	}

	keyUsage := x509.KeyUsageDigitalSignature
	if _, ok := priv.(*rsa.PrivateKey); ok {
		keyUsage |= x509.KeyUsageKeyEncipherment
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return cert, fmt.Errorf("generate serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{c.Organization}},
		NotBefore:             c.ValidFrom,
		NotAfter:              c.ValidFrom.Add(c.ValidFor),
		KeyUsage:              keyUsage | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	for _, h := range c.Hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, priv.Public(), priv)
	if err != nil {
		return cert, fmt.Errorf("create certificate: %w", err)
	}
	cert.Certificate = [][]byte{der}
	cert.PrivateKey = priv
	cert.Leaf, err = x509.ParseCertificate(der)

	return cert, err
}

func (c *SelfSignedCert) generateKey() (crypto.Signer, error) {
	if c.ECDSA {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	if c.RsaBits <= 0 {
		return nil, errors.New("RSA key size must be positive")
	}
	return rsa.GenerateKey(rand.Reader, c.RsaBits)
}

// WritePEM writes cert to cert.pem and key.pem in dir.
// RSA keys are written in PKCS#1 form and, when passphrase is set, encrypted with AES-256.
func WritePEM(dir string, cert tls.Certificate, passphrase string) (certFile, keyFile string, err error) {
	if len(cert.Certificate) == 0 {
		return "", "", errors.New("no certificate")
	}

	certFile = filepath.Join(dir, "cert.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Certificate[0]})
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		return "", "", err
	}

	block, err := keyBlock(cert.PrivateKey, passphrase)
	if err != nil {
		return "", "", err
	}
	keyFile = filepath.Join(dir, "key.pem")
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(block), 0o600); err != nil {
		return "", "", err
	}

	return certFile, keyFile, nil
}

func keyBlock(key crypto.PrivateKey, passphrase string) (*pem.Block, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		der := x509.MarshalPKCS1PrivateKey(k)
		if passphrase == "" {
			return &pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}, nil
		}
		//nolint:staticcheck // legacy encrypted PEM is what proxies are configured with
		return x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY", der, []byte(passphrase), x509.PEMCipherAES256)
	default:
		if passphrase != "" {
			return nil, fmt.Errorf("passphrase is supported for RSA keys only, got %T", key)
		}
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, err
		}
		return &pem.Block{Type: "PRIVATE KEY", Bytes: der}, nil
	}
}
