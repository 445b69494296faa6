/*
 * MIT License
 *
 * Copyright (c) 2022-2025  Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package frontdoor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tochemey/durable/log"
)

const (
	// DefaultListenAddr is where the front door listens unless told otherwise.
	DefaultListenAddr = "127.0.0.1:8787"
	// DefaultShutdownTimeout bounds a graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// Server serves the front door over HTTP/1.1 and cleartext HTTP/2 (h2c).
type Server struct {
	listenAddr      string
	shutdownTimeout time.Duration
	logger          log.Logger
	asker           Asker

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan error
	started  *atomic.Bool
}

// NewServer creates a Server forwarding requests to asker.
func NewServer(asker Asker, opts ...Option) *Server {
	server := &Server{
		listenAddr:      DefaultListenAddr,
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          log.DefaultLogger,
		asker:           asker,
		started:         atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt.Apply(server)
	}
	return server
}

// Start binds the listen address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started.Load() {
		return nil
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.listenAddr)
	if err != nil {
		return err
	}

	http2Server := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          time.Minute,
	}

	httpServer := &http.Server{
		Handler:           h2c.NewHandler(NewHandler(s.asker, s.logger), http2Server),
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	// lets graceful shutdown reach the hijacked h2c connections
	if err := http2.ConfigureServer(httpServer, http2Server); err != nil {
		_ = listener.Close()
		return err
	}

	done := make(chan error, 1)
	go func() {
		err := httpServer.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}()

	s.server = httpServer
	s.listener = listener
	s.done = done
	s.started.Store(true)
	s.logger.Infof("front door listening on %s", listener.Addr())
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started.Load() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	shutdownErr := s.server.Shutdown(ctx)
	if shutdownErr != nil {
		_ = s.server.Close()
	}
	serveErr := <-s.done

	s.started.Store(false)
	s.server = nil
	s.listener = nil
	s.done = nil
	s.logger.Info("front door stopped")
	return errors.Join(shutdownErr, serveErr)
}

// Addr returns the bound address, or the configured one when not started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.listenAddr
}
