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

package actor

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/zeebo/xxh3"

	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/internal/validation"
)

const (
	identitySeparator = "/"
	maxNameLength     = 255
)

var (
	namePattern   = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-_\.]*$`)
	errNameFormat = errors.New("must contain only word characters (i.e. [a-zA-Z0-9] plus non-leading '-', '_' or '.')")
)

// Identity uniquely identifies a grain instance.
//
// It consists of:
//   - kind: the grain kind the instance belongs to, e.g. "counter".
//   - name: the logical name of the instance, e.g. "A".
//   - id:   a stable token derived from kind and name.
//
// The id is the 128-bit xxh3 digest of "kind/name" rendered as 32 lowercase
// hex characters. The derivation is a pure function: the same kind and name
// always yield the same id, across processes and restarts. The id scopes the
// grain durable records. Identities are immutable and safe for concurrent use.
type Identity struct {
	kind string
	name string
	id   string
}

var _ validation.Validator = Identity{}

// NewIdentity derives the Identity of the grain named name of the given kind.
func NewIdentity(kind, name string) (*Identity, error) {
	identity := Identity{kind: kind, name: name}
	if err := identity.Validate(); err != nil {
		return nil, gerrors.NewErrInvalidIdentity(err)
	}
	identity.id = deriveID(kind, name)
	return &identity, nil
}

// Kind returns the grain kind.
func (i Identity) Kind() string {
	return i.kind
}

// Name returns the logical name of the grain instance.
func (i Identity) Name() string {
	return i.name
}

// ID returns the stable token derived from kind and name.
func (i Identity) ID() string {
	return i.id
}

// String returns "kind/name".
func (i Identity) String() string {
	return fmt.Sprintf("%s%s%s", i.kind, identitySeparator, i.name)
}

// Equal reports whether both identities address the same grain.
func (i Identity) Equal(other *Identity) bool {
	if other == nil {
		return false
	}
	return i.kind == other.kind && i.name == other.name
}

// Validate implements validation.Validator.
func (i Identity) Validate() error {
	return validation.
		New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("kind", i.kind)).
		AddAssertion(!strings.Contains(i.kind, identitySeparator), "grain kind must not contain '/'").
		AddValidator(validation.NewEmptyStringValidator("name", i.name)).
		AddAssertion(len(i.name) <= maxNameLength, "grain name is too long. Maximum length is 255").
		AddValidator(validation.NewPatternValidator(namePattern, i.name, errNameFormat)).
		Validate()
}

func deriveID(kind, name string) string {
	digest := xxh3.HashString128(kind + identitySeparator + name).Bytes()
	return hex.EncodeToString(digest[:])
}
