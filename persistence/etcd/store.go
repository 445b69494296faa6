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

// Package etcd provides a persistence.Store backed by an etcd cluster.
//
// Records live under the namespace "<prefix>/" as "<scope>/<name>".
package etcd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"

	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/internal/validation"
	"github.com/tochemey/durable/persistence"
)

// DefaultPrefix namespaces every key written by the Store.
const DefaultPrefix = "/durable/"

// Config defines the etcd store settings.
type Config struct {
	// Endpoints is the list of etcd cluster endpoints.
	Endpoints []string
	// Prefix namespaces the keys. Defaults to DefaultPrefix.
	Prefix string
	// DialTimeout bounds the initial connection. Defaults to 5s.
	DialTimeout time.Duration
	// Username for etcd authentication (optional)
	Username string
	// Password for etcd authentication (optional)
	Password string
}

var _ validation.Validator = (*Config)(nil)

// Sanitize fills the unset fields with their defaults.
func (c *Config) Sanitize() {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
}

// Validate implements validation.Validator.
func (c *Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddAssertion(len(c.Endpoints) > 0, "Endpoints must not be empty").
		AddAssertion(c.DialTimeout > 0, "DialTimeout must be greater than 0").
		AddValidator(validation.NewEmptyStringValidator("Prefix", c.Prefix)).
		Validate()
}

// Store persists records as etcd keys.
type Store struct {
	config *Config

	mu     sync.RWMutex
	client *clientv3.Client
	kv     clientv3.KV
}

var _ persistence.Store = (*Store)(nil)

// NewStore creates a Store. The client is created on Connect.
func NewStore(config *Config) *Store {
	config.Sanitize()
	return &Store{config: config}
}

// Connect creates the client and checks the first endpoint status.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	if err := s.config.Validate(); err != nil {
		return err
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   s.config.Endpoints,
		DialTimeout: s.config.DialTimeout,
		Username:    s.config.Username,
		Password:    s.config.Password,
	})
	if err != nil {
		return err
	}

	statusCtx, cancel := context.WithTimeout(ctx, s.config.DialTimeout)
	defer cancel()

	if _, err := client.Status(statusCtx, s.config.Endpoints[0]); err != nil {
		if cerr := client.Close(); cerr != nil {
			return errors.Join(err, fmt.Errorf("etcd: failed to close client: %w", cerr))
		}
		return fmt.Errorf("etcd: failed to connect: %w", err)
	}

	s.client = client
	s.kv = namespace.NewKV(client.KV, s.config.Prefix)
	return nil
}

// Disconnect closes the client.
func (s *Store) Disconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	s.kv = nil
	return err
}

// Ping checks the status of the first endpoint.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return gerrors.ErrStoreClosed
	}
	_, err := client.Status(ctx, s.config.Endpoints[0])
	return err
}

// Get returns the record stored under key.
func (s *Store) Get(ctx context.Context, key persistence.Key) ([]byte, error) {
	kv, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := kv.Get(ctx, key.String())
	if err != nil {
		return nil, fmt.Errorf("etcd: get %s: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, gerrors.NewErrKeyNotFound(key.String())
	}
	return resp.Kvs[0].Value, nil
}

// Put writes value under key.
func (s *Store) Put(ctx context.Context, key persistence.Key, value []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}

	kv, err := s.handle(ctx)
	if err != nil {
		return err
	}

	if _, err := kv.Put(ctx, key.String(), string(value)); err != nil {
		return fmt.Errorf("etcd: put %s: %w", key, err)
	}
	return nil
}

func (s *Store) handle(ctx context.Context) (clientv3.KV, error) {
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
