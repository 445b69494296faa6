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

// Command durable serves the durable counter grains over HTTP.
//
// It is configured through DURABLE_ environment variables, see package config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/durable/actor"
	"github.com/tochemey/durable/config"
	"github.com/tochemey/durable/counter"
	"github.com/tochemey/durable/frontdoor"
	"github.com/tochemey/durable/log"
	"github.com/tochemey/durable/passivation"
	"github.com/tochemey/durable/persistence"
	"github.com/tochemey/durable/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "durable: %v\n", err)
		os.Exit(1)
	}

	logger := log.NewZap(cfg.Level(), os.Stdout)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Errorf("durable exited: %v", err)
		_ = logger.Flush()
		os.Exit(1)
	}
	_ = logger.Flush()
}

// run serves until ctx is canceled, then shuts everything down in reverse order
func run(ctx context.Context, cfg *config.Config, logger log.Logger) error {
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	logger.Infof("connecting to the %s store", cfg.Store)
	if err := connectStore(ctx, store, cfg.StoreConnectRetries, logger); err != nil {
		return fmt.Errorf("connect %s store: %w", cfg.Store, err)
	}

	metricsAddr := cfg.MetricsAddr
	if !cfg.MetricsEnabled {
		metricsAddr = ""
	}

	metrics, err := newMetricsServer(metricsAddr, logger)
	if err != nil {
		return multierr.Append(err, store.Disconnect(context.Background()))
	}

	registry, err := newRegistry(cfg, store, metrics.Telemetry(), logger)
	if err != nil {
		return multierr.Combine(err, metrics.Stop(context.Background()), store.Disconnect(context.Background()))
	}

	if err := registry.Start(ctx); err != nil {
		return multierr.Combine(err, metrics.Stop(context.Background()), store.Disconnect(context.Background()))
	}

	server := frontdoor.NewServer(registry,
		frontdoor.WithListenAddr(cfg.ListenAddr),
		frontdoor.WithLogger(logger),
		frontdoor.WithShutdownTimeout(shutdownTimeout))

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := metrics.Start(gctx); err != nil {
			return fmt.Errorf("start metrics: %w", err)
		}
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("start front door: %w", err)
		}
		<-gctx.Done()
		return nil
	})

	err = group.Wait()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return multierr.Combine(
		err,
		server.Stop(shutdownCtx),
		registry.Stop(shutdownCtx),
		store.Disconnect(shutdownCtx),
		metrics.Stop(shutdownCtx),
	)
}

// newRegistry builds the registry and binds both counter kinds
func newRegistry(cfg *config.Config, store persistence.Store, tel *telemetry.Telemetry, logger log.Logger) (*actor.Registry, error) {
	var strategy passivation.Strategy = passivation.NewLongLivedStrategy()
	if cfg.PassivateAfter > 0 {
		strategy = passivation.NewTimeBasedStrategy(cfg.PassivateAfter)
	}

	registry, err := actor.NewRegistry(store,
		actor.WithLogger(logger),
		actor.WithPassivationStrategy(strategy),
		actor.WithRequestTimeout(cfg.RequestTimeout),
		actor.WithStoreTimeout(cfg.StoreTimeout),
		actor.WithActivationRetries(cfg.ActivationRetries),
		actor.WithMetrics(tel.Metrics))
	if err != nil {
		return nil, err
	}

	opts := []counter.Option{counter.WithLogger(logger)}
	if cfg.Profile {
		opts = append(opts, counter.WithProfile())
	}

	for _, kind := range []string{counter.Kind, counter.UserKind} {
		if err := registry.Register(kind, counter.NewFactory(opts...)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
