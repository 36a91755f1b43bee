// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package httpreq

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	methodRegex  = regexp.MustCompile(`^[A-Z]+$`)
	versionRegex = regexp.MustCompile(`^\d{1,2}(?:\.\d)?$`)
)

// RequestLine is the first line of an HTTP request.
// Version holds the part after "HTTP/", e.g. "1.1".
type RequestLine struct {
	Method  string
	Target  string
	Version string
}

func (l RequestLine) String() string {
	return l.Method + " " + l.Target + " HTTP/" + l.Version
}

// ParseRequestLine validates a request line of the form "METHOD URI HTTP/x[.y]".
// The method is case-sensitive, lower or mixed case is an error and is not normalized.
func ParseRequestLine(line string) (RequestLine, error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return RequestLine{}, parseError(ErrRequestLine, fmt.Sprintf("%q", line))
	}

	l := RequestLine{
		Method: parts[0],
		Target: parts[1],
	}
	if v, ok := strings.CutPrefix(parts[2], "HTTP/"); ok {
		l.Version = v
	}
	if l.Method == "" || l.Target == "" || l.Version == "" {
		return RequestLine{}, parseError(ErrRequestLine, fmt.Sprintf("%q", line))
	}

	if !methodRegex.MatchString(l.Method) {
		return l, parseError(ErrMethodCase, fmt.Sprintf("request method case: '%s'", l.Method))
	}
	if !versionRegex.MatchString(l.Version) || majorVersion(l.Version) == 0 {
		return l, parseError(ErrVersion, fmt.Sprintf("unexpected HTTP version: 'HTTP/%s'", l.Version))
	}

	return l, nil
}

func majorVersion(v string) int {
	major, _, _ := strings.Cut(v, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return 0
	}
	return n
}
