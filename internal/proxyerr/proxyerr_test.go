// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyerr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{New(Parse, nil, "incomplete request"), "parse error: incomplete request"},
		{New(Connect, io.EOF, ""), "connect error: EOF"},
		{New(Protocol, io.EOF, "no response"), "protocol error: no response: EOF"},
		{New(Kind(42), nil, ""), "unknown error"},
	}

	for i := range tests {
		tc := &tests[i]
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := fmt.Errorf("dial: %w", New(Policy, sentinel, ""))

	if !Is(err, Policy) {
		t.Fatal("expected policy kind")
	}
	if Is(err, Parse) {
		t.Fatal("unexpected parse kind")
	}
	if !errors.Is(err, sentinel) {
		t.Fatal("expected sentinel in chain")
	}
	if _, ok := KindOf(io.EOF); ok {
		t.Fatal("unexpected kind for plain error")
	}
}
