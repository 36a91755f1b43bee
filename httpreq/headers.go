// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package httpreq

import (
	"bytes"
	"slices"
	"strings"
)

// HeaderEntry is a single header value and the index of its line in the header list.
type HeaderEntry struct {
	Index int
	Value string
}

// HeaderMap maps lower-cased header names to their entries in line order.
// Duplicate names, e.g. several Connection lines, keep all entries.
type HeaderMap map[string][]HeaderEntry

// NewHeaderMap indexes header lines, lines without a colon are skipped.
func NewHeaderMap(lines []string) HeaderMap {
	m := make(HeaderMap)
	for i, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimRight(name, " \t"))
		m[name] = append(m[name], HeaderEntry{Index: i, Value: strings.TrimSpace(value)})
	}
	return m
}

// Has reports whether the header name is present, name must be lower-cased.
func (m HeaderMap) Has(name string) bool {
	_, ok := m[name]
	return ok
}

// Headers holds the header lines of a request without the request line.
// The map is rebuilt from scratch after every mutation so that entry indexes always match lines.
type Headers struct {
	lines []string
	m     HeaderMap
	host  string
}

// NewHeaders indexes the header lines, records the Host header and removes hop-by-hop headers.
// More than one Host header is an error.
func NewHeaders(lines []string) (*Headers, error) {
	h := &Headers{
		lines: slices.Clone(lines),
	}
	h.m = NewHeaderMap(h.lines)

	var err error
	if hosts := h.m["host"]; len(hosts) > 0 {
		if len(hosts) > 1 {
			err = parseError(ErrMultipleHost, "")
		}
		h.host = hosts[0].Value
	}

	h.remove(append(h.hopByHop(), "host"))

	return h, err
}

// hopByHop returns the names of the headers that apply to a single connection leg.
// Tokens listed in Connection are included only if they name an existing header.
func (h *Headers) hopByHop() []string {
	var names []string

	if entries, ok := h.m["connection"]; ok {
		names = append(names, "connection")
		for _, e := range entries {
			for _, name := range strings.Split(strings.ToLower(e.Value), ",") {
				name = strings.TrimSpace(name)
				if h.m.Has(name) {
					names = append(names, name)
				}
			}
		}
	}

	if h.m.Has("proxy-connection") {
		names = append(names, "proxy-connection")
	}

	return names
}

func (h *Headers) remove(names []string) {
	drop := make(map[int]struct{})
	for _, name := range names {
		for _, e := range h.m[strings.ToLower(name)] {
			drop[e.Index] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return
	}

	kept := make([]string, 0, len(h.lines)-len(drop))
	for i, line := range h.lines {
		if _, ok := drop[i]; !ok {
			kept = append(kept, line)
		}
	}
	h.lines = kept
	h.m = NewHeaderMap(h.lines)
}

// Host returns the value of the inbound Host header, it is empty if there was none.
func (h *Headers) Host() string {
	return h.host
}

// SetHost inserts "Host: value" as the first header line.
func (h *Headers) SetHost(value string) {
	h.lines = append([]string{"Host: " + value}, h.lines...)
	h.m = NewHeaderMap(h.lines)
}

func (h *Headers) Lines() []string {
	return slices.Clone(h.lines)
}

func (h *Headers) Map() HeaderMap {
	return h.m
}

// Encode returns the request line followed by the header lines and the terminating blank line.
func (h *Headers) Encode(requestLine string) []byte {
	var b bytes.Buffer
	b.WriteString(requestLine)
	b.WriteString("\r\n")
	for _, line := range h.lines {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.Bytes()
}
