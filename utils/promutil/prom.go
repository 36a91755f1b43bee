// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package promutil dumps and parses metrics in the Prometheus text format.
package promutil

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// NamePrefix returns a filter that keeps metric families with the given name prefix.
func NamePrefix(prefix string) func(*dto.MetricFamily) bool {
	return func(mf *dto.MetricFamily) bool {
		return strings.HasPrefix(mf.GetName(), prefix)
	}
}

// DumpPrometheusMetrics gathers metrics from p and encodes the families accepted by all filters.
func DumpPrometheusMetrics(p prometheus.Gatherer, filters ...func(*dto.MetricFamily) bool) (string, error) {
	got, err := p.Gather()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range got {
		if !accept(mf, filters) {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return "", err
		}
	}

	return buf.String(), nil
}

func accept(mf *dto.MetricFamily, filters []func(*dto.MetricFamily) bool) bool {
	for _, f := range filters {
		if !f(mf) {
			return false
		}
	}
	return true
}

// ParseMetricFamilies parses metrics in the text format, e.g. the body of a /metrics response.
func ParseMetricFamilies(r io.Reader) (*Gatherer, error) {
	var parser expfmt.TextParser
	mf, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, err
	}

	return &Gatherer{mf: mf}, nil
}

// Gatherer serves parsed metric families, sorted by name.
type Gatherer struct {
	mf map[string]*dto.MetricFamily
}

func (g *Gatherer) Gather() ([]*dto.MetricFamily, error) {
	res := make([]*dto.MetricFamily, 0, len(g.mf))
	for _, mf := range g.mf {
		res = append(res, mf)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].GetName() < res[j].GetName()
	})
	return res, nil
}

// Value returns the value of the first sample of the named counter or gauge.
func (g *Gatherer) Value(name string) (float64, bool) {
	mf, ok := g.mf[name]
	if !ok || len(mf.GetMetric()) == 0 {
		return 0, false
	}
	m := mf.GetMetric()[0]
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue(), true
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue(), true
	case m.GetUntyped() != nil:
		return m.GetUntyped().GetValue(), true
	default:
		return 0, false
	}
}
