// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"crypto/tls"
	"path/filepath"
	"testing"

	"github.com/saucelabs/proxydemo/utils/certutil"
)

func writeTestCert(t *testing.T, dir, passphrase string) (certFile, keyFile string) {
	t.Helper()

	cert, err := certutil.RSASelfSignedCert().Gen()
	if err != nil {
		t.Fatal(err)
	}
	certFile, keyFile, err = certutil.WritePEM(dir, cert, passphrase)
	if err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func TestLoadX509KeyPairPassphrase(t *testing.T) {
	certFile, keyFile := writeTestCert(t, t.TempDir(), "secret")

	if _, err := LoadX509KeyPair(certFile, keyFile, "secret"); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadX509KeyPair(certFile, keyFile, "wrong"); err == nil {
		t.Fatal("expected error for wrong passphrase")
	}
}

func TestTLSServerConfigSelfSigned(t *testing.T) {
	var cfg tls.Config
	if err := DefaultTLSServerConfig().ConfigureTLSConfig(&cfg); err != nil {
		t.Fatal(err)
	}
	if len(cfg.Certificates) != 1 {
		t.Fatalf("got %d certificates, want 1", len(cfg.Certificates))
	}
}

func TestLoadCertPool(t *testing.T) {
	dir := t.TempDir()
	certFile, _ := writeTestCert(t, dir, "")

	if _, err := LoadCertPool(certFile, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCertPool("", dir); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCertPool(filepath.Join(dir, "missing.pem"), ""); err == nil {
		t.Fatal("expected error for missing CA file")
	}
}
