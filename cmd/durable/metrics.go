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

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/multierr"

	"github.com/tochemey/durable/log"
	"github.com/tochemey/durable/telemetry"
)

const serviceName = "durable"

// metricsServer owns the SDK meter provider and serves its readings on /metrics
type metricsServer struct {
	addr     string
	logger   log.Logger
	provider *sdkmetric.MeterProvider
	handler  http.Handler

	server *http.Server
	done   chan error
}

func newMetricsServer(addr string, logger log.Logger) (*metricsServer, error) {
	provider, handler, err := telemetry.NewPrometheusMeterProvider(serviceName)
	if err != nil {
		return nil, err
	}
	return &metricsServer{
		addr:     addr,
		logger:   logger,
		provider: provider,
		handler:  handler,
	}, nil
}

// Telemetry returns the instruments bound to the SDK provider
func (m *metricsServer) Telemetry() *telemetry.Telemetry {
	return telemetry.New(telemetry.WithMeterProvider(m.provider))
}

// Start serves /metrics in the background. An empty address records without serving.
func (m *metricsServer) Start(ctx context.Context) error {
	if m.addr == "" {
		return nil
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", m.addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.handler)
	m.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	m.done = make(chan error, 1)
	go func() {
		err := m.server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		m.done <- err
	}()

	m.logger.Infof("metrics served on http://%s/metrics", listener.Addr())
	return nil
}

// Stop shuts the listener down and flushes the meter provider
func (m *metricsServer) Stop(ctx context.Context) error {
	var err error
	if m.server != nil {
		if err = m.server.Shutdown(ctx); err != nil {
			_ = m.server.Close()
		}
		err = multierr.Append(err, <-m.done)
		m.server = nil
	}
	return multierr.Append(err, m.provider.Shutdown(ctx))
}
