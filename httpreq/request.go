// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package httpreq

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

var headerEnd = []byte("\r\n\r\n")

// RawRequest is the header section of an inbound buffer split into lines.
// Lines[0] is the request line, BodyOffset is the index of the first body byte in the buffer.
type RawRequest struct {
	Lines      []string
	BodyOffset int
}

// Split splits buf at the first blank line.
func Split(buf []byte) (*RawRequest, error) {
	i := bytes.Index(buf, headerEnd)
	if i < 0 {
		return nil, parseError(ErrIncomplete, "")
	}

	return &RawRequest{
		Lines:      strings.Split(string(buf[:i]), "\r\n"),
		BodyOffset: i + len(headerEnd),
	}, nil
}

// ExpectedLength returns the length of the complete message in buf if the header section is complete.
// For requests other than CONNECT that carry a valid Content-Length, the body is included.
func ExpectedLength(buf []byte) (int, bool) {
	raw, err := Split(buf)
	if err != nil {
		return 0, false
	}
	if strings.HasPrefix(raw.Lines[0], http.MethodConnect+" ") {
		return raw.BodyOffset, true
	}

	m := NewHeaderMap(raw.Lines[1:])
	if cl, ok := m["content-length"]; ok {
		n, err := strconv.Atoi(cl[0].Value)
		if err == nil && n > 0 {
			return raw.BodyOffset + n, true
		}
	}

	return raw.BodyOffset, true
}

// Guard decides whether a target may be dialed, a non-nil error rejects the request.
type Guard func(host string, port int) error

// Request is a validated forwarding decision.
type Request struct {
	Raw     *RawRequest
	Line    RequestLine
	Headers *Headers
	Target  Target

	// Message is the rewritten request to send upstream, it is nil for CONNECT.
	Message []byte
}

func (r *Request) IsConnect() bool {
	return r.Line.Method == http.MethodConnect
}

// Lines returns the inbound header lines for diagnostics, it is safe to call on a nil Request.
func (r *Request) Lines() []string {
	if r == nil || r.Raw == nil {
		return nil
	}
	return r.Raw.Lines
}

// Parse validates buf and builds the forwarding decision.
// On rejection it may return a partially filled Request together with the error,
// so that the inbound lines can be logged.
func Parse(buf []byte, guard Guard) (*Request, error) {
	raw, err := Split(buf)
	if err != nil {
		return nil, err
	}

	r := &Request{Raw: raw}

	if r.Line, err = ParseRequestLine(raw.Lines[0]); err != nil {
		return r, err
	}
	if r.Headers, err = NewHeaders(raw.Lines[1:]); err != nil {
		return r, err
	}

	if r.IsConnect() {
		if raw.BodyOffset != len(buf) {
			return r, parseError(ErrConnectBody, "")
		}
		if r.Target, err = ParseConnectTarget(r.Line.Target); err != nil {
			return r, err
		}
		if r.Target.Port == 25 {
			return r, policyError(ErrPort25, r.Target.Addr())
		}
		if err := check(guard, r.Target); err != nil {
			return r, err
		}
		return r, nil
	}

	if r.Target, err = ParseTarget(r.Line.Target, r.Headers.Host()); err != nil {
		return r, err
	}
	if err := check(guard, r.Target); err != nil {
		return r, err
	}

	r.Headers.SetHost(r.Target.HostHeader())

	// Forwarded requests are always HTTP/1.0, the upstream closes the connection after the response.
	out := RequestLine{
		Method:  r.Line.Method,
		Target:  r.Line.Target,
		Version: "1.0",
	}
	r.Message = append(r.Headers.Encode(out.String()), buf[raw.BodyOffset:]...)

	return r, nil
}

func check(guard Guard, t Target) error {
	if guard == nil {
		return nil
	}
	if err := guard(t.Host, t.Port); err != nil {
		return policyError(err, t.Addr())
	}
	return nil
}
