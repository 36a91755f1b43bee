// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmatczuk/anyflag"
	"github.com/spf13/cobra"
)

type testSliceStruct struct {
	Strings []string
	Ints    []int
	Bools   []bool
	IPs     []netip.Addr
}

func TestBindSlice(t *testing.T) {
	formats := []string{
		"yaml",
		"json",
		"toml",
	}

	for _, ext := range formats {
		t.Run(ext, func(t *testing.T) {
			cmd := &cobra.Command{}
			fs := cmd.Flags()

			var v testSliceStruct
			fs.String("config-file", "testdata/bind-slice."+ext, "")
			fs.StringSliceVar(&v.Strings, "strings", nil, "")
			fs.IntSliceVar(&v.Ints, "ints", nil, "")
			fs.BoolSliceVar(&v.Bools, "bools", nil, "")
			fs.Var(anyflag.NewSliceValue[netip.Addr](nil, &v.IPs, netip.ParseAddr), "ips", "")

			if err := BindAll(cmd, "TEST", "config-file"); err != nil {
				t.Fatal(err)
			}

			expected := testSliceStruct{
				Strings: []string{"a", "b", "c"},
				Ints:    []int{1, 2, 3},
				Bools:   []bool{true, false},
				IPs: []netip.Addr{
					netip.MustParseAddr("127.0.0.1"),
					netip.MustParseAddr("127.0.0.2"),
				},
			}

			ipcmp := cmp.Comparer(func(a, b netip.Addr) bool {
				return a.String() == b.String()
			})
			if diff := cmp.Diff(expected, v, ipcmp); diff != "" {
				t.Fatalf("unexpected result (-want +got):\n%s", diff)
			}
		})
	}
}

type testClientFlags struct {
	LocalCert       string
	CAFile          string
	UserAgent       string
	ProtocolVersion string
	Passphrase      string
}

func newClientCommand(v *testClientFlags, configFile string) *cobra.Command {
	cmd := &cobra.Command{}
	fs := cmd.Flags()
	fs.String("config-file", configFile, "")
	fs.StringVar(&v.LocalCert, "ssl-local-cert", "", "")
	fs.StringVar(&v.CAFile, "ssl-cafile", "", "")
	fs.StringVar(&v.Passphrase, "ssl-passphrase", "", "")
	fs.StringVar(&v.UserAgent, "http-user-agent", "", "")
	fs.StringVar(&v.ProtocolVersion, "http-protocol-version", "1.0", "")
	return cmd
}

func TestBindINISections(t *testing.T) {
	var v testClientFlags
	cmd := newClientCommand(&v, "testdata/client.ini")

	if err := BindAll(cmd, "TEST", "config-file"); err != nil {
		t.Fatal(err)
	}

	expected := testClientFlags{
		LocalCert:       "/etc/proxydemo/client.pem",
		CAFile:          "/etc/proxydemo/ca.pem",
		UserAgent:       "proxydemo-test",
		ProtocolVersion: "1.1",
	}
	if diff := cmp.Diff(expected, v); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}
}

func TestBindPrecedence(t *testing.T) {
	t.Setenv("TEST_SSL_CAFILE", "/env/ca.pem")
	t.Setenv("TEST_SSL_PASSPHRASE", "secret")

	var v testClientFlags
	cmd := newClientCommand(&v, "testdata/client.ini")
	if err := cmd.Flags().Set("http-user-agent", "from-flag"); err != nil {
		t.Fatal(err)
	}

	if err := BindAll(cmd, "test", "config-file"); err != nil {
		t.Fatal(err)
	}

	expected := testClientFlags{
		LocalCert:       "/etc/proxydemo/client.pem",
		CAFile:          "/env/ca.pem",
		UserAgent:       "from-flag",
		ProtocolVersion: "1.1",
		Passphrase:      "secret",
	}
	if diff := cmp.Diff(expected, v); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}
}

func TestBindMissingConfigFile(t *testing.T) {
	var v testClientFlags
	cmd := newClientCommand(&v, "testdata/does-not-exist.yaml")

	if err := BindAll(cmd, "TEST", "config-file"); err == nil {
		t.Fatal("expected error")
	}
}

func TestConfigKeys(t *testing.T) {
	tests := []struct {
		flag string
		keys []string
	}{
		{flag: "proxy", keys: []string{"proxy"}},
		{flag: "ssl-local-cert", keys: []string{"ssl-local-cert", "ssl.local_cert"}},
		{flag: "http-user-agent", keys: []string{"http-user-agent", "http.user_agent"}},
	}

	for _, tc := range tests {
		if diff := cmp.Diff(tc.keys, ConfigKeys(tc.flag)); diff != "" {
			t.Errorf("ConfigKeys(%q) (-want +got):\n%s", tc.flag, diff)
		}
	}
}

func TestEnvName(t *testing.T) {
	if got := EnvName("proxydemo", "ssl-local-cert"); got != "PROXYDEMO_SSL_LOCAL_CERT" {
		t.Fatalf("unexpected env name: %s", got)
	}
}
