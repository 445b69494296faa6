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
	"fmt"
	"time"

	"github.com/flowchartsman/retry"

	"github.com/tochemey/durable/config"
	"github.com/tochemey/durable/log"
	"github.com/tochemey/durable/persistence"
	"github.com/tochemey/durable/persistence/bolt"
	"github.com/tochemey/durable/persistence/etcd"
	"github.com/tochemey/durable/persistence/memory"
	"github.com/tochemey/durable/persistence/nats"
	"github.com/tochemey/durable/persistence/redis"
	"github.com/tochemey/durable/persistence/sql"
)

const (
	connectBackoff    = 200 * time.Millisecond
	connectMaxBackoff = 5 * time.Second
)

// newStore builds the backend selected by cfg. The store is not connected yet.
func newStore(cfg *config.Config) (persistence.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.NewStore(), nil
	case config.StoreBolt:
		return bolt.NewStore(cfg.BoltPath), nil
	case config.StoreSQLite:
		return sql.NewStore(sql.SQLite, cfg.SQLDSN), nil
	case config.StorePostgres:
		return sql.NewStore(sql.Postgres, cfg.SQLDSN), nil
	case config.StoreRedis:
		return redis.NewStore(&redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), nil
	case config.StoreNATS:
		return nats.NewStore(&nats.Config{URL: cfg.NATSURL}), nil
	case config.StoreEtcd:
		etcdConfig := &etcd.Config{Endpoints: cfg.EtcdEndpoints}
		etcdConfig.Sanitize()
		if err := etcdConfig.Validate(); err != nil {
			return nil, err
		}
		return etcd.NewStore(etcdConfig), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// connectStore connects store, retrying while the backend comes up
func connectStore(ctx context.Context, store persistence.Store, retries int, logger log.Logger) error {
	attempt := 0
	retrier := retry.NewRetrier(retries, connectBackoff, connectMaxBackoff)
	return retrier.RunContext(ctx, func(ctx context.Context) error {
		attempt++
		if err := store.Connect(ctx); err != nil {
			logger.Warnf("store connection attempt %d/%d failed: %v", attempt, retries, err)
			return err
		}
		return nil
	})
}
