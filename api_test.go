// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/saucelabs/proxydemo/utils/promutil"
)

type fakeServer string

func (s fakeServer) Addr() string {
	return string(s)
}

func newAPIExpect(t *testing.T, s server) *httpexpect.Expect {
	t.Helper()

	r := prometheus.NewRegistry()
	promauto.With(r).NewCounter(prometheus.CounterOpts{
		Name: "test_counter_total",
		Help: "Test counter",
	}).Inc()

	h := NewAPIHandler(r, s, "address=127.0.0.1:3128\n")

	return httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  "http://localhost",
		Reporter: httpexpect.NewAssertReporter(t),
		Client: &http.Client{
			Transport: httpexpect.NewBinder(h),
		},
	})
}

func TestAPIHandler(t *testing.T) {
	e := newAPIExpect(t, fakeServer("127.0.0.1:3128"))

	e.GET("/healthz").Expect().Status(http.StatusOK).Body().IsEqual("OK")
	e.GET("/readyz").Expect().Status(http.StatusOK).Body().IsEqual("OK")
	e.GET("/configz").Expect().Status(http.StatusOK).Body().IsEqual("address=127.0.0.1:3128\n")
	body := e.GET("/metrics").Expect().Status(http.StatusOK).Body().Raw()
	g, err := promutil.ParseMetricFamilies(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := g.Value("test_counter_total"); !ok || v != 1 {
		t.Fatalf("test_counter_total: got %v %v", v, ok)
	}

	v := e.GET("/version").Expect().Status(http.StatusOK).JSON().Object()
	v.ContainsKey("version")
	v.ContainsKey("go_version")
}

func TestAPIHandlerNotReady(t *testing.T) {
	e := newAPIExpect(t, fakeServer(""))

	e.GET("/readyz").Expect().Status(http.StatusServiceUnavailable)
}
