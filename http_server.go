// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxydemo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/saucelabs/proxydemo/log"
)

type HTTPServerConfig struct {
	Addr        string
	ReadTimeout time.Duration
}

func DefaultHTTPServerConfig() *HTTPServerConfig {
	return &HTTPServerConfig{
		Addr:        "localhost:10000",
		ReadTimeout: 5 * time.Second,
	}
}

// HTTPServer runs a plain HTTP server, it is used for the API endpoints.
type HTTPServer struct {
	config HTTPServerConfig
	log    log.StructuredLogger
	srv    *http.Server

	mu       sync.Mutex
	listener net.Listener
}

func NewHTTPServer(cfg *HTTPServerConfig, h http.Handler, log log.StructuredLogger) (*HTTPServer, error) {
	if cfg.Addr == "" {
		return nil, errors.New("address must be set")
	}

	return &HTTPServer{
		config: *cfg,
		log:    log,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
		},
	}, nil
}

func (hs *HTTPServer) Listen() error {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.listener != nil {
		return nil
	}

	l, err := Listen("tcp", hs.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to open listener on address %s: %w", hs.config.Addr, err)
	}
	hs.listener = l

	return nil
}

func (hs *HTTPServer) Addr() string {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.listener == nil {
		return ""
	}
	return hs.listener.Addr().String()
}

func (hs *HTTPServer) Run(ctx context.Context) error {
	if err := hs.Listen(); err != nil {
		return err
	}

	hs.log.Info("HTTP server listen", "address", hs.Addr())

	var wg sync.WaitGroup
	wg.Add(1)
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer wg.Done()

		<-ctx.Done()
		if err := hs.srv.Shutdown(context.Background()); err != nil {
			hs.log.Error("failed to shutdown server", "error", err)
		}
	}()

	if err := hs.srv.Serve(hs.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	hs.log.Debug("HTTP server was shutdown gracefully")

	return nil
}
