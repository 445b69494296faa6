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

// Package persistence defines the durable state store consumed by grains.
//
// A Store is the backend contract: it maps a (scope, name) Key onto raw bytes.
// A Storage is the view handed to a single grain at activation time. It is
// bound to exactly one scope, the grain identity, so no two grains can observe
// each other's records. Values are encoded with a Serializer before they reach
// the backend.
package persistence

import (
	"context"
	"fmt"
	"strings"
)

// Key addresses a single durable record.
type Key struct {
	// Scope isolates records per grain. It is the grain identity id.
	Scope string
	// Name is the record name within the scope, e.g. "counter".
	Name string
}

// NewKey creates a Key.
func NewKey(scope, name string) Key {
	return Key{Scope: scope, Name: name}
}

// String returns the flat "scope/name" representation used by flat keyspaces.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Scope, k.Name)
}

// Validate checks that both parts of the key are set.
func (k Key) Validate() error {
	if strings.TrimSpace(k.Scope) == "" {
		return fmt.Errorf("persistence: key scope is required")
	}
	if strings.TrimSpace(k.Name) == "" {
		return fmt.Errorf("persistence: key name is required")
	}
	return nil
}

// Store is the contract every durable state backend implements.
//
// Implementations must be safe for concurrent use. Put overwrites any existing
// value atomically and the write is visible to any Get issued after Put returns.
type Store interface {
	// Connect establishes the backend connection. It is idempotent.
	Connect(ctx context.Context) error
	// Disconnect releases the backend connection. It is idempotent.
	Disconnect(ctx context.Context) error
	// Ping verifies that the backend can serve requests.
	Ping(ctx context.Context) error
	// Get returns the bytes stored under key or an error wrapping
	// errors.ErrKeyNotFound when no record exists.
	Get(ctx context.Context, key Key) ([]byte, error)
	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, key Key, value []byte) error
}
