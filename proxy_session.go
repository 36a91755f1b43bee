// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"net"

	"github.com/saucelabs/proxydemo/log"
)

// SessionState is the state of a client connection handled by ProxyServer.
//
// A session moves from Accepted to Parsing and then either to Rejected,
// or through UpstreamConnecting, UpstreamConnected and Relaying.
// Every session ends in Closed.
type SessionState int

const (
	StateAccepted SessionState = iota
	StateParsing
	StateRejected
	StateUpstreamConnecting
	StateUpstreamConnected
	StateRelaying
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateParsing:
		return "parsing"
	case StateRejected:
		return "rejected"
	case StateUpstreamConnecting:
		return "upstream-connecting"
	case StateUpstreamConnected:
		return "upstream-connected"
	case StateRelaying:
		return "relaying"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnHooks is notified about connection lifecycle events.
// Upstream connections get their own ID, OnUpstreamError receives the ID of the client session.
// Hooks are called from connection goroutines and must be safe for concurrent use.
type ConnHooks interface {
	OnConnect(id uint64, local, remote net.Addr)
	OnClose(id uint64)
	OnUpstreamError(parentID uint64, addr string, err error)
	OnReject(id uint64, reason string)
}

type nopHooks struct{}

func (nopHooks) OnConnect(uint64, net.Addr, net.Addr)  {}
func (nopHooks) OnClose(uint64)                        {}
func (nopHooks) OnUpstreamError(uint64, string, error) {}
func (nopHooks) OnReject(uint64, string)               {}

// session is one side of a proxied connection.
// Upstream sessions record the ID of the client session that created them in parent, client sessions have parent 0.
type session struct {
	id     uint64
	parent uint64
	state  SessionState
	conn   net.Conn
	log    log.StructuredLogger
}

func (s *session) setState(state SessionState) {
	s.state = state
	s.log.Debug("session state changed", "state", state)
}
