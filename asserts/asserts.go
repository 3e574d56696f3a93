/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package asserts

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// TestingT is satisfied by *testing.T and *testing.B.
type TestingT = assert.TestingT

type tHelper interface {
	Helper()
}

func helper(t TestingT) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
}

// PanicError wraps a value recovered from a panicking function.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Assert fails the test when expr is false.
func Assert(t TestingT, expr bool, msgAndArgs ...interface{}) bool {
	helper(t)
	if !expr {
		return assert.Fail(t, "Expression is not truthy", msgAndArgs...)
	}
	return true
}

// AssertEquals checks actual and expected for deep equality.
func AssertEquals(t TestingT, actual, expected interface{}, msgAndArgs ...interface{}) bool {
	helper(t)
	return assert.Equal(t, expected, actual, msgAndArgs...)
}

func AssertNotEquals(t TestingT, actual, expected interface{}, msgAndArgs ...interface{}) bool {
	helper(t)
	return assert.NotEqual(t, expected, actual, msgAndArgs...)
}

// AssertStrictEq requires pointers to reference the same object and other
// values to have identical type and value.
func AssertStrictEq(t TestingT, actual, expected interface{}, msgAndArgs ...interface{}) bool {
	helper(t)
	if isPointer(actual) && isPointer(expected) {
		return assert.Same(t, expected, actual, msgAndArgs...)
	}
	return assert.Exactly(t, expected, actual, msgAndArgs...)
}

func AssertStrContains(t TestingT, actual, expected string, msgAndArgs ...interface{}) bool {
	helper(t)
	return assert.Contains(t, actual, expected, msgAndArgs...)
}

// AssertArrayContains checks that every element of expected is in actual.
func AssertArrayContains(t TestingT, actual, expected interface{}, msgAndArgs ...interface{}) bool {
	helper(t)
	return assert.Subset(t, actual, expected, msgAndArgs...)
}

func AssertMatch(t TestingT, actual string, expected *regexp.Regexp, msgAndArgs ...interface{}) bool {
	helper(t)
	return assert.Regexp(t, expected, actual, msgAndArgs...)
}

// AssertThrows calls fn and checks the error it returns or panics with.
// See AssertThrowsAsync for the meaning of target and msgIncludes.
func AssertThrows(t TestingT, fn func() error, target interface{}, msgIncludes string, msgAndArgs ...interface{}) error {
	helper(t)
	err := func() (err error) {
		defer recoverInto(&err)
		return fn()
	}()
	return checkThrown(t, err, target, msgIncludes, msgAndArgs...)
}

// AssertThrowsAsync runs fn on its own goroutine, waits for it, and checks
// that it returned or panicked with an error. When target is an error the
// result must match it with errors.Is, when it is a pointer errors.As must
// succeed. A non-empty msgIncludes must be part of the error message. The
// error is returned so callers can make further assertions.
func AssertThrowsAsync(t TestingT, ctx context.Context, fn func(ctx context.Context) error, target interface{}, msgIncludes string, msgAndArgs ...interface{}) error {
	helper(t)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverInto(&err)
		return fn(gctx)
	})
	return checkThrown(t, g.Wait(), target, msgIncludes, msgAndArgs...)
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = &PanicError{Value: r}
	}
}

func checkThrown(t TestingT, err error, target interface{}, msgIncludes string, msgAndArgs ...interface{}) error {
	helper(t)
	if err == nil {
		assert.Fail(t, "Expected function to throw", msgAndArgs...)
		return nil
	}

	switch tgt := target.(type) {
	case nil:
	case error:
		if !errors.Is(err, tgt) {
			assert.Fail(t, fmt.Sprintf("Expected error to be %q, but got %q", tgt, err), msgAndArgs...)
			return err
		}
	default:
		if !isPointer(tgt) || reflect.ValueOf(tgt).IsNil() {
			assert.Fail(t, fmt.Sprintf("Invalid error target %T: must be an error or a non-nil pointer", tgt), msgAndArgs...)
			return err
		}
		if !assert.ErrorAs(t, err, tgt, msgAndArgs...) {
			return err
		}
	}

	if msgIncludes != "" {
		assert.ErrorContains(t, err, msgIncludes, msgAndArgs...)
	}
	return err
}

func isPointer(v interface{}) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Ptr
}

// Fail stops the test with msg.
func Fail(t require.TestingT, msg string, msgAndArgs ...interface{}) {
	helper(t)
	require.Fail(t, msg, msgAndArgs...)
}

// Unimplemented stops the test, marking a code path as not implemented yet.
func Unimplemented(t require.TestingT, msgAndArgs ...interface{}) {
	helper(t)
	require.Fail(t, "unimplemented", msgAndArgs...)
}

// Unreachable stops the test, marking a code path that must never run.
func Unreachable(t require.TestingT, msgAndArgs ...interface{}) {
	helper(t)
	require.Fail(t, "unreachable", msgAndArgs...)
}
