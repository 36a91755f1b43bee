// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package httpreq

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/saucelabs/proxydemo/internal/proxyerr"
)

func TestParseRequestLine(t *testing.T) {
	tests := []struct {
		line string
		want RequestLine
		err  error
		msg  string
	}{
		{
			line: "GET / HTTP/1.1",
			want: RequestLine{Method: "GET", Target: "/", Version: "1.1"},
		},
		{
			line: "CONNECT example.com:443 HTTP/1.0",
			want: RequestLine{Method: "CONNECT", Target: "example.com:443", Version: "1.0"},
		},
		{
			line: "GET / HTTP/2",
			want: RequestLine{Method: "GET", Target: "/", Version: "2"},
		},
		{
			line: "GET / HTTP/10.1",
			want: RequestLine{Method: "GET", Target: "/", Version: "10.1"},
		},
		{
			line: "get / HTTP/1.1",
			err:  ErrMethodCase,
			msg:  "parse error: request method case: 'get': request method case",
		},
		{
			line: "Get / HTTP/1.1",
			err:  ErrMethodCase,
		},
		{
			line: "GET / HTTP/0",
			err:  ErrVersion,
			msg:  "parse error: unexpected HTTP version: 'HTTP/0': unexpected HTTP version",
		},
		{
			line: "GET / HTTP/0.9",
			err:  ErrVersion,
		},
		{
			line: "GET / HTTP/1.10",
			err:  ErrVersion,
		},
		{
			line: "GET / HTTP/x",
			err:  ErrVersion,
		},
		{
			line: "GET /  HTTP/1.1",
			err:  ErrRequestLine,
		},
		{
			line: "GET /",
			err:  ErrRequestLine,
		},
		{
			line: "GET / FTP/1.1",
			err:  ErrRequestLine,
		},
	}

	for i := range tests {
		tc := &tests[i]
		t.Run(tc.line, func(t *testing.T) {
			got, err := ParseRequestLine(tc.line)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("got error %v, want %v", err, tc.err)
				}
				if !proxyerr.Is(err, proxyerr.Parse) {
					t.Fatalf("got error %v, want parse error", err)
				}
				if tc.msg != "" && err.Error() != tc.msg {
					t.Fatalf("got message %q, want %q", err.Error(), tc.msg)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("unexpected request line (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRequestLineRoundTrip(t *testing.T) {
	l := RequestLine{Method: "GET", Target: "http://example.com/", Version: "1.1"}
	got, err := ParseRequestLine(l.String())
	if err != nil {
		t.Fatal(err)
	}
	if got != l {
		t.Fatalf("got %+v, want %+v", got, l)
	}
}
