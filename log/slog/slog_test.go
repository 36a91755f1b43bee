// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package slog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	flog "github.com/saucelabs/proxydemo/log"
)

func TestLoggerLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &flog.Config{Level: flog.InfoLevel, Format: flog.TextFormat})

	l.Debug("hidden")
	l.Info("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug message logged at info level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "message=shown") {
		t.Fatalf("info message missing: %q", buf.String())
	}
}

func TestLoggerNamedJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &flog.Config{Level: flog.DebugLevel, Format: flog.JSONFormat})

	l.Named("proxy").With("id", 7).Debug("session closed")

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	for k, want := range map[string]any{
		"name":     "proxy",
		"message":  "session closed",
		"severity": "DEBUG",
		"id":       float64(7),
	} {
		if m[k] != want {
			t.Errorf("%s: got %v, want %v", k, m[k], want)
		}
	}
}

func TestLoggerOnError(t *testing.T) {
	var got string
	l := NewWithWriter(new(bytes.Buffer), flog.DefaultConfig(), WithOnError(func(name string) { got = name })).Named("tunnel")
	l.Error("boom")
	if got != "tunnel" {
		t.Fatalf("onError name: got %q, want %q", got, "tunnel")
	}
}

func TestLoggerWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &flog.Config{Level: flog.InfoLevel, Format: flog.TextFormat},
		WithAttributes("target", "https://example.com"))

	l.Info("Connect to proxy")

	if !strings.Contains(buf.String(), "target=https://example.com") {
		t.Fatalf("attribute missing: %q", buf.String())
	}
}
