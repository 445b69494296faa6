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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned by a store when no record exists under the requested key
	// for the given scope. Readers treat it as "absent" and fall back to a default value.
	ErrKeyNotFound = errors.New("key not found")

	// ErrStorageUnavailable is returned when the durable state store cannot serve a request.
	// It is fatal to the current request only.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrRouteNotFound is returned when a grain receives a request for a path it does not serve.
	ErrRouteNotFound = errors.New("route not found")

	// ErrCounterOverflow is returned when a counter mutation would leave its integer range.
	ErrCounterOverflow = errors.New("counter overflow")

	// ErrRequestTimeout indicates that a request timed out while waiting for a grain response.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrRegistryNotStarted indicates that the registry has not been started before use.
	ErrRegistryNotStarted = errors.New("registry is not running")

	// ErrRegistryAlreadyStarted is returned when attempting to start a registry that is already running.
	ErrRegistryAlreadyStarted = errors.New("registry has already started")

	// ErrKindNotRegistered is returned when a request targets a grain kind without a registered factory.
	ErrKindNotRegistered = errors.New("grain kind is not registered")

	// ErrInvalidIdentity is returned when a grain identity is malformed or invalid.
	ErrInvalidIdentity = errors.New("invalid grain identity")

	// ErrGrainActivationFailure is returned when Grain activation failed
	ErrGrainActivationFailure = errors.New("grain activation failed")

	// ErrGrainDeactivationFailure is returned when Grain deactivation failed
	ErrGrainDeactivationFailure = errors.New("grain deactivation failed")

	// ErrDead indicates that the grain process is no longer alive.
	ErrDead = errors.New("grain is not alive")

	// ErrStoreClosed is returned when an operation is attempted on a disconnected store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrInvalidTimeout is returned when a timeout value is less than or equal to zero.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidPassivationStrategy is returned when an invalid passivation strategy is specified.
	ErrInvalidPassivationStrategy = errors.New("invalid passivation strategy, must be one of: 'time-based' or 'long-lived'")
)

// NewErrKeyNotFound formats an ErrKeyNotFound with the given key.
func NewErrKeyNotFound(key string) error {
	return fmt.Errorf("key=(%s) %w", key, ErrKeyNotFound)
}

// NewErrRouteNotFound formats an ErrRouteNotFound with the given path.
func NewErrRouteNotFound(path string) error {
	return fmt.Errorf("path=(%s) %w", path, ErrRouteNotFound)
}

// NewErrStorageUnavailable wraps a base error with ErrStorageUnavailable.
func NewErrStorageUnavailable(err error) error {
	return errors.Join(ErrStorageUnavailable, err)
}

// NewErrGrainActivationFailure wraps a base error with ErrGrainActivationFailure to indicate a Grain activation failure
func NewErrGrainActivationFailure(err error) error {
	return errors.Join(ErrGrainActivationFailure, err)
}

// NewErrGrainDeactivationFailure wraps an error with ErrGrainDeactivationFailure to indicate a Grain deactivation failure
func NewErrGrainDeactivationFailure(err error) error {
	return errors.Join(ErrGrainDeactivationFailure, err)
}

// NewErrInvalidIdentity wraps an error with ErrInvalidIdentity to indicate a Grain identity issue.
func NewErrInvalidIdentity(err error) error {
	return errors.Join(ErrInvalidIdentity, err)
}

// NewErrKindNotRegistered formats an ErrKindNotRegistered with the given kind.
func NewErrKindNotRegistered(kind string) error {
	return fmt.Errorf("kind=(%s) %w", kind, ErrKindNotRegistered)
}

// PanicError defines the panic error
// wrapping the underlying error
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}
