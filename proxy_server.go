// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saucelabs/proxydemo/conntrack"
	"github.com/saucelabs/proxydemo/httpreq"
	"github.com/saucelabs/proxydemo/internal/proxyerr"
	"github.com/saucelabs/proxydemo/log"
	"golang.org/x/net/proxy"
)

type Scheme string

const (
	HTTPScheme  Scheme = "http"
	HTTPSScheme Scheme = "https"
)

func (s Scheme) String() string {
	return string(s)
}

var (
	badRequestResponse = []byte("HTTP/1.1 400 Bad Request\r\nConnection: close\r\n\r\n")
	connectOKResponse  = []byte("HTTP/1.1 200 OK\r\n\r\n")
)

type ProxyServerConfig struct {
	// Address is the listening address, e.g. "127.0.0.1:3128".
	Address string

	// Protocol is http for a plain proxy or https for a proxy that clients reach over TLS.
	Protocol Scheme

	TLSServerConfig

	// ReadHeaderTimeout is the amount of time allowed to read the request.
	// It includes the body of requests with Content-Length.
	ReadHeaderTimeout time.Duration

	// MaxRequestSize limits the size of a buffered request including its body.
	MaxRequestSize int

	// ReadLimit and WriteLimit limit the bandwidth of each client connection in bytes per second.
	ReadLimit  int64
	WriteLimit int64

	PromNamespace string
	PromRegistry  prometheus.Registerer
}

func DefaultProxyServerConfig() *ProxyServerConfig {
	return &ProxyServerConfig{
		Address:           "127.0.0.1:3128",
		Protocol:          HTTPScheme,
		TLSServerConfig:   *DefaultTLSServerConfig(),
		ReadHeaderTimeout: 30 * time.Second,
		MaxRequestSize:    1 << 20,
		PromNamespace:     "proxydemo",
	}
}

func (c *ProxyServerConfig) Validate() error {
	switch c.Protocol {
	case HTTPScheme, HTTPSScheme:
	default:
		return fmt.Errorf("unsupported protocol %q", c.Protocol)
	}
	if c.Address == "" {
		return errors.New("address must be set")
	}
	if c.MaxRequestSize <= 0 {
		return errors.New("max request size must be positive")
	}
	if c.ReadHeaderTimeout < 0 {
		return errors.New("read header timeout must not be negative")
	}
	if c.ReadLimit < 0 || c.WriteLimit < 0 {
		return errors.New("bandwidth limits must not be negative")
	}
	if c.Protocol == HTTPSScheme {
		if err := c.TLSServerConfig.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type ProxyServerOption func(*ProxyServer)

// WithConnHooks sets hooks notified about connection lifecycle events.
func WithConnHooks(h ConnHooks) ProxyServerOption {
	return func(ps *ProxyServer) {
		ps.hooks = h
	}
}

// WithResolver sets the resolver used to detect requests looping back to the proxy.
func WithResolver(r Resolver) ProxyServerOption {
	return func(ps *ProxyServer) {
		ps.resolver = r
	}
}

// ProxyServer is a forward proxy handling one request per client connection.
// Each accepted connection is served by its own goroutine.
type ProxyServer struct {
	config   ProxyServerConfig
	dialer   proxy.ContextDialer
	log      log.StructuredLogger
	hooks    ConnHooks
	resolver Resolver
	loop     *LoopGuard
	metrics  *serverMetrics

	listener *Listener
	mu       sync.Mutex
	lastID   atomic.Uint64
}

func NewProxyServer(cfg *ProxyServerConfig, dialer proxy.ContextDialer, log log.StructuredLogger, opts ...ProxyServerOption) (*ProxyServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ps := &ProxyServer{
		config: *cfg,
		dialer: dialer,
		log:    log,
		hooks:  nopHooks{},
	}
	for _, opt := range opts {
		opt(ps)
	}
	ps.loop = NewLoopGuard(ps.resolver, log)
	ps.metrics = newServerMetrics(cfg.PromRegistry, cfg.PromNamespace)

	l := &Listener{
		Address:       cfg.Address,
		Log:           log,
		ReadLimit:     cfg.ReadLimit,
		WriteLimit:    cfg.WriteLimit,
		PromNamespace: cfg.PromNamespace,
		PromRegistry:  cfg.PromRegistry,
	}
	if cfg.Protocol == HTTPSScheme {
		tlsCfg := &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		if err := cfg.TLSServerConfig.ConfigureTLSConfig(tlsCfg); err != nil {
			return nil, fmt.Errorf("configure TLS: %w", err)
		}
		l.TLSConfig = tlsCfg
		l.TLSHandshakeTimeout = cfg.HandshakeTimeout
	}
	ps.listener = l

	return ps, nil
}

// Listen binds the listening socket, Run calls it if needed.
func (ps *ProxyServer) Listen() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.listener.listener != nil {
		return nil
	}
	return ps.listener.Listen()
}

// Addr returns the listening address, it is empty until the server is listening.
func (ps *ProxyServer) Addr() string {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.listener.listener == nil {
		return ""
	}
	return ps.listener.Addr().String()
}

// Run serves connections until ctx is canceled.
// When ctx is canceled the listener and all open connections are closed and Run waits for the connection goroutines.
func (ps *ProxyServer) Run(ctx context.Context) error {
	if err := ps.Listen(); err != nil {
		return err
	}
	ps.log.Info("PROXY server listen", "address", ps.Addr(), "protocol", ps.config.Protocol)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if err := ps.listener.Close(); err != nil {
			ps.log.Error("failed to close listener", "error", err)
		}
	}()

	var (
		err   error
		delay time.Duration
	)
	for {
		c, aerr := ps.listener.Accept()
		if aerr != nil {
			if errors.Is(aerr, net.ErrClosed) || ctx.Err() != nil {
				break
			}

			// Back off on errors like running out of file descriptors.
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(2*delay, time.Second)
			}
			ps.log.Error("failed to accept connection", "error", aerr, "retry", delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
			}
			break
		}
		delay = 0

		wg.Add(1)
		go func() {
			defer wg.Done()
			ps.serveConn(ctx, c)
		}()
	}

	cancel()
	wg.Wait()

	ps.log.Debug("PROXY server was shutdown gracefully")

	return err
}

func (ps *ProxyServer) newSession(c net.Conn, parent uint64) *session {
	id := ps.lastID.Add(1)
	return &session{
		id:     id,
		parent: parent,
		state:  StateAccepted,
		conn:   c,
		log:    ps.log.With("id", id, "parent", parent),
	}
}

func (ps *ProxyServer) closeSession(s *session) {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && !isClosedConnError(err) {
			s.log.Debug("failed to close connection", "error", err)
		}
	}
	s.setState(StateClosed)
	ps.hooks.OnClose(s.id)
}

func (ps *ProxyServer) serveConn(ctx context.Context, c net.Conn) {
	s := ps.newSession(c, 0)
	ps.metrics.open()
	defer ps.metrics.close()

	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()
	defer ps.closeSession(s)

	ps.hooks.OnConnect(s.id, c.LocalAddr(), c.RemoteAddr())
	s.log.Debug("accepted connection", "local", c.LocalAddr(), "remote", c.RemoteAddr())

	if err := ps.listener.Handshake(ctx, c); err != nil {
		s.log.Debug("closing connection", "error", err)
		return
	}

	s.setState(StateParsing)
	buf, err := ps.readRequest(c)
	if len(buf) == 0 {
		s.log.Debug("connection closed before request", "error", err)
		return
	}
	// On EOF the buffered bytes are parsed as they are.
	if err != nil && !errors.Is(err, io.EOF) {
		if !proxyerr.Is(err, ParseError) {
			err = NewError(ParseError, err, "incomplete request")
		}
		ps.reject(s, nil, err)
		return
	}

	req, err := httpreq.Parse(buf, ps.guard(ctx, c))
	if err != nil {
		ps.reject(s, req, err)
		return
	}

	ps.forward(ctx, s, req)
}

// readRequest reads until the message is complete as told by httpreq.ExpectedLength.
func (ps *ProxyServer) readRequest(c net.Conn) ([]byte, error) {
	if t := ps.config.ReadHeaderTimeout; t > 0 {
		c.SetReadDeadline(time.Now().Add(t)) //nolint:errcheck // the read fails if the deadline cannot be set
		defer c.SetReadDeadline(time.Time{}) //nolint:errcheck // see above
	}

	var (
		buf   []byte
		chunk = make([]byte, 4096)
	)
	for {
		n, err := c.Read(chunk)
		buf = append(buf, chunk[:n]...)

		if want, ok := httpreq.ExpectedLength(buf); ok && len(buf) >= want {
			return buf, nil
		}
		if len(buf) > ps.config.MaxRequestSize {
			return buf, NewError(ParseError, ErrRequestTooLarge, "")
		}
		if err != nil {
			return buf, err
		}
	}
}

func (ps *ProxyServer) guard(ctx context.Context, c net.Conn) httpreq.Guard {
	la, ok := c.LocalAddr().(*net.TCPAddr)
	if !ok {
		return nil
	}
	ip := la.AddrPort().Addr()
	port := la.Port

	return func(host string, p int) error {
		if !ps.loop.Allowed(ctx, host, p, ip, port) {
			return ErrLoop
		}
		return nil
	}
}

func (ps *ProxyServer) reject(s *session, req *httpreq.Request, err error) {
	s.setState(StateRejected)

	reason := "unknown"
	if k, ok := proxyerr.KindOf(err); ok {
		reason = k.String()
	}
	ps.metrics.reject(reason)
	ps.hooks.OnReject(s.id, err.Error())

	s.log.Info("request rejected", "reason", err)
	if lines := req.Lines(); len(lines) > 0 {
		s.log.Debug("rejected request", "request", strings.Join(lines, "\n"))
	}

	if _, werr := s.conn.Write(badRequestResponse); werr != nil {
		s.log.Debug("failed to write response", "error", werr)
	}
}

func (ps *ProxyServer) forward(ctx context.Context, s *session, req *httpreq.Request) {
	addr := req.Target.Addr()

	// The client is told the tunnel is open before the upstream is dialed.
	// A dial failure then closes the connection without an HTTP error.
	if req.IsConnect() {
		if _, err := s.conn.Write(connectOKResponse); err != nil {
			s.log.Debug("failed to write CONNECT response", "error", err)
			return
		}
		ps.metrics.tunnel()
	}

	s.setState(StateUpstreamConnecting)
	uc, err := ps.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		ps.metrics.upstreamError()
		ps.hooks.OnUpstreamError(s.id, addr, err)
		s.log.Error("Internal - unable to connect to "+addr, "error", err)
		return
	}

	u := ps.newSession(uc, s.id)
	stop := context.AfterFunc(ctx, func() { uc.Close() })
	defer stop()
	defer ps.closeSession(u)

	ps.hooks.OnConnect(u.id, uc.LocalAddr(), uc.RemoteAddr())
	u.log.Debug("connected to upstream", "addr", addr)
	s.setState(StateUpstreamConnected)

	if !req.IsConnect() {
		if _, err := uc.Write(req.Message); err != nil {
			s.log.Error("failed to send request upstream", "addr", addr, "error", err)
			return
		}
	}

	s.setState(StateRelaying)

	cc, co := conntrack.Builder{TrackTraffic: true}.BuildWithObserver(s.conn)
	relay(s.log,
		copier{name: "upstream", dst: uc, src: cc},
		copier{name: "downstream", dst: cc, src: uc},
	)
	ps.metrics.traffic(co.Rx(), co.Tx())
	s.log.Debug("relay finished", "rx", co.Rx(), "tx", co.Tx())
}
