// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tunnel

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/saucelabs/proxydemo"
	"github.com/saucelabs/proxydemo/internal/version"
	"github.com/saucelabs/proxydemo/log"
	"go.uber.org/multierr"
	"golang.org/x/net/proxy"
)

var connectOK = regexp.MustCompile(`^HTTP/\d\.\d\s+200\s+`)

type Option func(*Client)

// WithDialer sets the dialer used to reach the proxy.
func WithDialer(d proxy.ContextDialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// Client sends a single GET request through an HTTP or HTTPS proxy.
// Requests to https targets use a CONNECT tunnel with TLS negotiated end to end,
// over an https proxy the inner TLS session is bridged through a loopback pipe pair.
type Client struct {
	cfg       *Config
	dialer    proxy.ContextDialer
	tlsConfig *tls.Config
	log       log.StructuredLogger
}

func NewClient(cfg *Config, l log.StructuredLogger, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = log.NopLogger
	}

	tlsCfg, err := cfg.TLS.clientTLSConfig()
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:       cfg,
		tlsConfig: tlsCfg,
		log:       l,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		dc := proxydemo.DefaultDialConfig()
		dc.DialTimeout = cfg.DialTimeout
		c.dialer = proxydemo.NewDialer(dc)
	}

	return c, nil
}

// Do sends the session request and returns the raw response.
func (c *Client) Do(ctx context.Context, s *Session) (resp []byte, err error) {
	defer func() {
		if err != nil {
			c.setPhase(s, PhaseFailed)
		} else {
			c.setPhase(s, PhaseClosed)
		}
	}()

	c.log.Debug("Connect to proxy", "proxy", s.ProxyURL.Redacted())
	conn, err := c.dialProxy(ctx, s.ProxyURL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	c.setPhase(s, PhaseProxyConnected)

	if !s.SecureHTTP {
		c.setPhase(s, PhaseDirectSend)
		return c.exchange(s, conn)
	}

	c.setPhase(s, PhaseConnectSend)
	c.log.Debug("CONNECT request for host", "host", s.TargetAddr())
	if err := c.connectTunnel(conn, s.TargetAddr()); err != nil {
		return nil, err
	}
	c.setPhase(s, PhaseConnectAck)

	if s.SecureProxy {
		return c.doBridged(ctx, s, conn)
	}
	return c.doTLS(ctx, s, conn)
}

// Dialer returns a dialer opening CONNECT tunnels through the proxy at proxyURL.
func (c *Client) Dialer(proxyURL string) (ContextDialerFunc, error) {
	u, err := ParseURL(proxyURL)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if network != "tcp" {
			return nil, fmt.Errorf("unsupported network %q", network)
		}
		conn, err := c.dialProxy(ctx, u)
		if err != nil {
			return nil, err
		}
		if err := c.connectTunnel(conn, addr); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}, nil
}

func (c *Client) dialProxy(ctx context.Context, u *url.URL) (net.Conn, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		if !proxydemo.IsKind(err, proxydemo.ConnectError) {
			err = proxydemo.NewError(proxydemo.ConnectError, err, "cannot connect to proxy")
		}
		return nil, err
	}
	c.log.Debug(connDump("Proxy connection", conn))

	if u.Scheme != "https" {
		return conn, nil
	}

	tlsConn, err := c.handshake(ctx, conn, u.Hostname())
	if err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func (c *Client) handshake(ctx context.Context, conn net.Conn, serverName string) (*tls.Conn, error) {
	cfg := c.tlsConfig.Clone()
	cfg.ServerName = serverName

	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, proxydemo.NewError(proxydemo.ConnectError, err, "cannot enable crypto to "+serverName)
	}
	return tlsConn, nil
}

func (c *Client) connectTunnel(conn net.Conn, addr string) error {
	req := "CONNECT " + addr + " HTTP/1.0\r\nHost: " + addr + "\r\n\r\n"
	if _, err := conn.Write([]byte(req)); err != nil {
		return proxydemo.NewError(proxydemo.ConnectError, err, "send CONNECT request")
	}

	resp, err := c.poll().read(conn, headerComplete)
	if len(resp) == 0 {
		return proxydemo.NewError(proxydemo.ProtocolError, err, "no response from CONNECT request to proxy")
	}
	if !connectOK.Match(resp) {
		return proxydemo.NewError(proxydemo.ProtocolError, nil, "unexpected response from CONNECT request to proxy: \n"+string(resp))
	}
	return nil
}

func (c *Client) doTLS(ctx context.Context, s *Session, conn net.Conn) ([]byte, error) {
	c.setPhase(s, PhaseTLSHandshaking)
	tlsConn, err := c.handshake(ctx, conn, s.TargetURL.Hostname())
	if err != nil {
		return nil, err
	}
	c.setPhase(s, PhaseTLSEstablished)

	return c.exchange(s, tlsConn)
}

func (c *Client) doBridged(ctx context.Context, s *Session, conn net.Conn) (resp []byte, err error) {
	c.setPhase(s, PhaseBridgeSetup)
	c.log.Debug("Create pipe sockets for https tunnel")
	b, err := NewBridgeSession(ctx, conn, &c.cfg.Pipe, c.log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			c.log.Debug("failed to close bridge", "error", cerr)
		}
	}()

	c.setPhase(s, PhaseTLSHandshaking)
	var (
		tlsConn *tls.Conn
		hsErr   error
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		tlsConn, hsErr = c.handshake(ctx, b.ClientPipe(), s.TargetURL.Hostname())
	}()
	if perr := c.pump(b, done); perr != nil {
		b.Close()
		<-done
		return nil, multierr.Append(hsErr, proxydemo.NewError(proxydemo.ConnectError, perr, "bridge"))
	}
	<-done
	if hsErr != nil {
		return nil, hsErr
	}
	c.setPhase(s, PhaseTLSEstablished)

	done = make(chan struct{})
	go func() {
		defer close(done)
		resp, err = c.exchange(s, tlsConn)
	}()
	if perr := c.pump(b, done); perr != nil && !errors.Is(perr, ErrIdle) {
		c.log.Debug("bridge failed", "error", perr)
		b.Close()
	}
	<-done

	return resp, err
}

func (c *Client) pump(b *BridgeSession, done <-chan struct{}) error {
	return b.Pump(done, c.cfg.PollInterval, c.cfg.IdleRetries)
}

// exchange writes the GET request to conn and reads the response.
func (c *Client) exchange(s *Session, conn net.Conn) ([]byte, error) {
	c.setPhase(s, PhaseRequestSend)
	if _, err := conn.Write(c.request(s)); err != nil {
		return nil, proxydemo.NewError(proxydemo.ConnectError, err, "send request")
	}

	c.setPhase(s, PhaseResponseWait)
	resp, err := c.poll().read(conn, nil)
	if len(resp) == 0 {
		return nil, proxydemo.NewError(proxydemo.ProtocolError, err, "no data was returned")
	}
	if err != nil {
		c.log.Debug("response truncated", "error", err)
	}
	return resp, nil
}

func (c *Client) request(s *Session) []byte {
	ua := c.cfg.UserAgent
	if ua == "" {
		ua = version.UserAgent()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "GET %s HTTP/%s\r\n", s.requestURI(), c.cfg.ProtocolVersion)
	fmt.Fprintf(&sb, "Host: %s\r\n", s.hostHeader())
	fmt.Fprintf(&sb, "User-Agent: %s\r\n", ua)
	sb.WriteString("\r\n")
	return []byte(sb.String())
}

func (c *Client) poll() pollReader {
	return pollReader{
		interval: c.cfg.PollInterval,
		retries:  c.cfg.IdleRetries,
	}
}

func (c *Client) setPhase(s *Session, p Phase) {
	if s.Phase == p {
		return
	}
	c.log.Debug("phase", "from", s.Phase, "to", p)
	s.Phase = p
}
