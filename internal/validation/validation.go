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

package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

// Validator is implemented by anything able to check its own invariants.
type Validator interface {
	Validate() error
}

// Chain accumulates validators and reports their violations as a single error.
type Chain struct {
	failFast   bool
	validators []Validator
}

// ChainOption configures a validation chain at creation time.
type ChainOption func(*Chain)

// New creates a new validation chain.
func New(opts ...ChainOption) *Chain {
	chain := &Chain{validators: make([]Validator, 0, 4)}
	for _, opt := range opts {
		opt(chain)
	}
	return chain
}

// FailFast stops the chain at the first violation.
func FailFast() ChainOption {
	return func(c *Chain) { c.failFast = true }
}

// AddValidator adds validator to the validation chain.
func (c *Chain) AddValidator(v Validator) *Chain {
	c.validators = append(c.validators, v)
	return c
}

// AddAssertion adds assertion to the validation chain.
func (c *Chain) AddAssertion(isTrue bool, message string) *Chain {
	return c.AddValidator(NewBooleanValidator(isTrue, message))
}

// Validate runs the chain. All violations are combined unless FailFast is set.
func (c *Chain) Validate() error {
	var violations error
	for _, v := range c.validators {
		err := v.Validate()
		if err == nil {
			continue
		}
		if c.failFast {
			return err
		}
		violations = multierr.Append(violations, err)
	}
	return violations
}

type booleanValidator struct {
	check   bool
	message string
}

// NewBooleanValidator returns a validator failing with message when check is false.
func NewBooleanValidator(check bool, message string) Validator {
	return booleanValidator{check: check, message: message}
}

func (v booleanValidator) Validate() error {
	if !v.check {
		return errors.New(v.message)
	}
	return nil
}

type emptyStringValidator struct {
	field string
	value string
}

// NewEmptyStringValidator returns a validator failing when value is blank.
func NewEmptyStringValidator(field, value string) Validator {
	return emptyStringValidator{field: field, value: value}
}

func (v emptyStringValidator) Validate() error {
	if strings.TrimSpace(v.value) == "" {
		return fmt.Errorf("the [%s] is required", v.field)
	}
	return nil
}

type patternValidator struct {
	expression *regexp.Regexp
	value      string
	customErr  error
}

// NewPatternValidator returns a validator failing when value does not match expression.
// customErr, when set, replaces the generic error.
func NewPatternValidator(expression *regexp.Regexp, value string, customErr error) Validator {
	return patternValidator{expression: expression, value: value, customErr: customErr}
}

func (v patternValidator) Validate() error {
	if v.expression.MatchString(v.value) {
		return nil
	}
	if v.customErr != nil {
		return v.customErr
	}
	return fmt.Errorf("%q does not match %s", v.value, v.expression.String())
}
