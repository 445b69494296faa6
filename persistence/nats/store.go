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

// Package nats provides a persistence.Store backed by a NATS JetStream KeyValue bucket.
//
// Records are stored under the KV key "<scope>.<name>".
package nats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/persistence"
)

const (
	// DefaultBucket is the KV bucket used when none is configured.
	DefaultBucket = "durable_state"

	defaultConnectTimeout = 5 * time.Second
)

// Config defines the NATS store settings.
type Config struct {
	// URL is the NATS server url.
	URL string
	// Bucket is the JetStream KV bucket name. Defaults to DefaultBucket.
	Bucket string
	// ConnectTimeout bounds the initial connection. Defaults to 5s.
	ConnectTimeout time.Duration
}

// Sanitize fills the unset fields with their defaults.
func (c *Config) Sanitize() {
	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
}

// Store persists records in a JetStream KeyValue bucket.
type Store struct {
	config *Config

	mu   sync.RWMutex
	conn *nats.Conn
	kv   jetstream.KeyValue
}

var _ persistence.Store = (*Store)(nil)

// NewStore creates a Store. The connection is opened on Connect.
func NewStore(config *Config) *Store {
	config.Sanitize()
	return &Store{config: config}
}

// Connect dials the server and binds (or creates) the KV bucket.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	if strings.TrimSpace(s.config.URL) == "" {
		return errors.New("nats: server url is required")
	}

	conn, err := nats.Connect(s.config.URL, nats.Timeout(s.config.ConnectTimeout))
	if err != nil {
		return fmt.Errorf("nats: connect: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("nats: jetstream: %w", err)
	}

	kv, err := js.KeyValue(ctx, s.config.Bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: s.config.Bucket, History: 1})
		// another process may have created the bucket in between
		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err = js.KeyValue(ctx, s.config.Bucket)
		}
	}
	if err != nil {
		conn.Close()
		return fmt.Errorf("nats: bind bucket: %w", err)
	}

	s.conn = conn
	s.kv = kv
	return nil
}

// Disconnect drains and closes the connection.
func (s *Store) Disconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Drain()
	s.conn = nil
	s.kv = nil
	return err
}

// Ping performs a round trip to the server.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return gerrors.ErrStoreClosed
	}
	return conn.FlushWithContext(ctx)
}

// Get returns the record stored under key. The call is bounded by ctx.
func (s *Store) Get(ctx context.Context, key persistence.Key) ([]byte, error) {
	kv, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := kv.Get(ctx, kvKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, gerrors.NewErrKeyNotFound(key.String())
		}
		return nil, fmt.Errorf("nats: get %s: %w", key, err)
	}
	return entry.Value(), nil
}

// Put writes value under key. The call is bounded by ctx.
func (s *Store) Put(ctx context.Context, key persistence.Key, value []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}

	kv, err := s.handle(ctx)
	if err != nil {
		return err
	}

	if _, err := kv.Put(ctx, kvKey(key), value); err != nil {
		return fmt.Errorf("nats: put %s: %w", key, err)
	}
	return nil
}

func (s *Store) handle(ctx context.Context) (jetstream.KeyValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.kv == nil {
		return nil, gerrors.ErrStoreClosed
	}
	return s.kv, nil
}

func kvKey(key persistence.Key) string {
	return key.Scope + "." + key.Name
}
