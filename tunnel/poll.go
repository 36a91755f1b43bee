// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tunnel

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"time"
)

// pollReader reads from a connection in bounded waits.
type pollReader struct {
	interval time.Duration
	retries  int
}

// read reads from c until EOF, until done reports the data complete,
// or until more than retries consecutive polls return nothing.
// Deadline expiry is not an error, what was read so far is returned.
func (p pollReader) read(c net.Conn, done func([]byte) bool) ([]byte, error) {
	defer c.SetReadDeadline(time.Time{}) //nolint:errcheck // best effort

	var (
		out  bytes.Buffer
		buf  = make([]byte, 32*1024)
		idle int
	)
	for {
		if err := c.SetReadDeadline(time.Now().Add(p.interval)); err != nil {
			return out.Bytes(), err
		}
		n, err := c.Read(buf)
		out.Write(buf[:n])

		if done != nil && done(out.Bytes()) {
			return out.Bytes(), nil
		}

		if err != nil {
			switch {
			case isTimeout(err):
			case isEOF(err):
				return out.Bytes(), nil
			default:
				return out.Bytes(), err
			}
		}

		if n > 0 {
			idle = 0
			continue
		}
		idle++
		if idle > p.retries {
			return out.Bytes(), nil
		}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func headerComplete(b []byte) bool {
	return bytes.Contains(b, []byte("\r\n\r\n"))
}
