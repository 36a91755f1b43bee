// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package certutil

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestSelfSignedCertGen(t *testing.T) {
	tests := []struct {
		name string
		spec *SelfSignedCert
	}{
		{"rsa", RSASelfSignedCert()},
		{"ecdsa", ECDSASelfSignedCert()},
	}

	for i := range tests {
		tc := tests[i]
		t.Run(tc.name, func(t *testing.T) {
			cert, err := tc.spec.Gen()
			if err != nil {
				t.Fatalf("Gen() error %s", err)
			}

			s := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			s.TLS = &tls.Config{Certificates: []tls.Certificate{cert}}
			defer s.Close()
			s.StartTLS()

			pool := x509.NewCertPool()
			pool.AddCert(cert.Leaf)
			c := http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}}}
			resp, err := c.Get(s.URL)
			if err != nil {
				t.Fatalf("http.Get() error %s", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("http.Get() status code %d", resp.StatusCode)
			}
		})
	}
}

func TestGenInvalidKeySize(t *testing.T) {
	c := RSASelfSignedCert()
	c.RsaBits = 0
	if _, err := c.Gen(); err == nil {
		t.Fatal("expected error")
	}
}

func TestWritePEM(t *testing.T) {
	rsaCert, err := RSASelfSignedCert().Gen()
	if err != nil {
		t.Fatal(err)
	}
	certFile, keyFile, err := WritePEM(t.TempDir(), rsaCert, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tls.LoadX509KeyPair(certFile, keyFile); err != nil {
		t.Fatalf("LoadX509KeyPair() error %s", err)
	}

	ecCert, err := ECDSASelfSignedCert().Gen()
	if err != nil {
		t.Fatal(err)
	}
	certFile, keyFile, err = WritePEM(t.TempDir(), ecCert, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tls.LoadX509KeyPair(certFile, keyFile); err != nil {
		t.Fatalf("LoadX509KeyPair() error %s", err)
	}
	if _, _, err := WritePEM(t.TempDir(), ecCert, "secret"); err == nil {
		t.Fatal("expected error for encrypted ECDSA key")
	}

	_, keyFile, err = WritePEM(t.TempDir(), rsaCert, "secret")
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(keyFile)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tls.X509KeyPair(rsaCert.Certificate[0], b); err == nil {
		t.Fatal("expected error for encrypted key")
	}
}
