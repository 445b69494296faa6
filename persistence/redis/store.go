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

// Package redis provides a persistence.Store backed by Redis.
//
// Each scope maps to one Redis hash named "<prefix>:<scope>" whose fields are the record names.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/persistence"
)

// DefaultKeyPrefix namespaces the hashes written by the Store.
const DefaultKeyPrefix = "durable"

// Config defines the Redis store settings.
type Config struct {
	// Addr is the host:port of the Redis server.
	Addr string
	// Username is optional.
	Username string
	// Password is optional.
	Password string
	// DB selects the logical database.
	DB int
	// KeyPrefix namespaces the hashes. Defaults to DefaultKeyPrefix.
	KeyPrefix string
}

// Store persists records in Redis hashes.
type Store struct {
	config *Config

	mu     sync.RWMutex
	client *redis.Client
}

var _ persistence.Store = (*Store)(nil)

// NewStore creates a Store. The client is created on Connect.
func NewStore(config *Config) *Store {
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}
	return &Store{config: config}
}

// Connect creates the client and verifies the server answers.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	if strings.TrimSpace(s.config.Addr) == "" {
		return errors.New("redis: server address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     s.config.Addr,
		Username: s.config.Username,
		Password: s.config.Password,
		DB:       s.config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis: ping: %w", err)
	}

	s.client = client
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
	return err
}

// Ping verifies the server still answers.
func (s *Store) Ping(ctx context.Context) error {
	client, err := s.handle()
	if err != nil {
		return err
	}
	return client.Ping(ctx).Err()
}

// Get returns the record stored under key.
func (s *Store) Get(ctx context.Context, key persistence.Key) ([]byte, error) {
	client, err := s.handle()
	if err != nil {
		return nil, err
	}

	value, err := client.HGet(ctx, s.hash(key), key.Name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gerrors.NewErrKeyNotFound(key.String())
		}
		return nil, fmt.Errorf("redis: hget %s: %w", key, err)
	}
	return value, nil
}

// Put writes value under key. HSET on a single field is atomic.
func (s *Store) Put(ctx context.Context, key persistence.Key, value []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}

	client, err := s.handle()
	if err != nil {
		return err
	}

	if err := client.HSet(ctx, s.hash(key), key.Name, value).Err(); err != nil {
		return fmt.Errorf("redis: hset %s: %w", key, err)
	}
	return nil
}

func (s *Store) hash(key persistence.Key) string {
	return s.config.KeyPrefix + ":" + key.Scope
}

func (s *Store) handle() (*redis.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, gerrors.ErrStoreClosed
	}
	return s.client, nil
}
