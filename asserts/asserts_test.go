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
	"io/fs"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockT struct {
	errors    []string
	failedNow bool
}

func (m *mockT) Errorf(format string, args ...interface{}) {
	m.errors = append(m.errors, fmt.Sprintf(format, args...))
}

func (m *mockT) FailNow() { m.failedNow = true }

func (m *mockT) Helper() {}

func (m *mockT) failed() bool { return len(m.errors) > 0 }

func (m *mockT) output() string { return strings.Join(m.errors, "\n") }

type codeError struct {
	code int
}

func (e *codeError) Error() string { return fmt.Sprintf("code %d", e.code) }

func TestValueAssertions(t *testing.T) {
	ok := &mockT{}
	assert.True(t, Assert(ok, 1+1 == 2))
	assert.True(t, AssertEquals(ok, []int{1, 2}, []int{1, 2}))
	assert.True(t, AssertNotEquals(ok, 1, 2))
	assert.True(t, AssertStrContains(ok, "hello world", "o w"))
	assert.True(t, AssertArrayContains(ok, []string{"a", "b", "c"}, []string{"c", "a"}))
	assert.True(t, AssertMatch(ok, "order-42", regexp.MustCompile(`^order-\d+$`)))
	assert.False(t, ok.failed(), ok.output())

	bad := &mockT{}
	assert.False(t, Assert(bad, false, "custom %s", "message"))
	assert.Contains(t, bad.output(), "custom message")

	bad = &mockT{}
	assert.False(t, AssertEquals(bad, map[string]int{"a": 1}, map[string]int{"a": 2}))
	assert.False(t, AssertArrayContains(bad, []int{1}, []int{2}))
	assert.False(t, AssertMatch(bad, "x", regexp.MustCompile(`\d`)))
	assert.Len(t, bad.errors, 3)
}

func TestAssertStrictEq(t *testing.T) {
	type point struct{ X, Y int }
	p := &point{1, 2}

	m := &mockT{}
	assert.True(t, AssertStrictEq(m, p, p))
	assert.True(t, AssertStrictEq(m, int64(3), int64(3)))
	assert.False(t, m.failed(), m.output())

	assert.False(t, AssertStrictEq(m, p, &point{1, 2}))
	assert.False(t, AssertStrictEq(m, int32(3), int64(3)))
	assert.Len(t, m.errors, 2)
}

func TestAssertThrows(t *testing.T) {
	m := &mockT{}
	err := AssertThrows(m, func() error { return fmt.Errorf("open: %w", fs.ErrNotExist) }, fs.ErrNotExist, "open")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.False(t, m.failed(), m.output())

	var ce *codeError
	err = AssertThrows(m, func() error { return fmt.Errorf("wrapped: %w", &codeError{code: 7}) }, &ce, "code 7")
	assert.Error(t, err)
	assert.Equal(t, 7, ce.code)
	assert.False(t, m.failed(), m.output())

	var pe *PanicError
	err = AssertThrows(m, func() error { panic("kaboom") }, &pe, "kaboom")
	assert.Error(t, err)
	assert.Equal(t, "kaboom", pe.Value)
	assert.False(t, m.failed(), m.output())

	err = AssertThrows(m, func() error { panic(fs.ErrClosed) }, fs.ErrClosed, "")
	assert.ErrorIs(t, err, fs.ErrClosed)
	assert.False(t, m.failed(), m.output())
}

func TestAssertThrowsFailures(t *testing.T) {
	m := &mockT{}
	assert.NoError(t, AssertThrows(m, func() error { return nil }, nil, ""))
	assert.Contains(t, m.output(), "Expected function to throw")

	m = &mockT{}
	AssertThrows(m, func() error { return errors.New("a") }, fs.ErrNotExist, "")
	assert.Contains(t, m.output(), "Expected error to be")

	m = &mockT{}
	AssertThrows(m, func() error { return errors.New("a") }, nil, "b")
	assert.True(t, m.failed())

	m = &mockT{}
	AssertThrows(m, func() error { return errors.New("a") }, "not a target", "")
	assert.Contains(t, m.output(), "Invalid error target")

	m = &mockT{}
	var ce *codeError
	AssertThrows(m, func() error { return errors.New("a") }, &ce, "")
	assert.True(t, m.failed())
}

func TestAssertThrowsAsync(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	m := &mockT{}
	err := AssertThrowsAsync(m, ctx, func(ctx context.Context) error {
		select {
		case <-time.After(10 * time.Millisecond):
			return errors.New("request timed out")
		case <-ctx.Done():
			return ctx.Err()
		}
	}, nil, "timed out")
	assert.EqualError(t, err, "request timed out")
	assert.False(t, m.failed(), m.output())

	short, cancelShort := context.WithCancel(context.Background())
	cancelShort()
	err = AssertThrowsAsync(m, short, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, context.Canceled, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, m.failed(), m.output())

	var pe *PanicError
	AssertThrowsAsync(m, ctx, func(context.Context) error { panic("async") }, &pe, "async")
	assert.False(t, m.failed(), m.output())

	AssertThrowsAsync(m, ctx, func(context.Context) error { return nil }, nil, "")
	assert.True(t, m.failed())
}

func TestFailHelpers(t *testing.T) {
	for name, fn := range map[string]func(*mockT){
		"fail":          func(m *mockT) { Fail(m, "stop here") },
		"unimplemented": func(m *mockT) { Unimplemented(m) },
		"unreachable":   func(m *mockT) { Unreachable(m, "branch %d", 3) },
	} {
		m := &mockT{}
		fn(m)
		assert.True(t, m.failedNow, name)
		assert.True(t, m.failed(), name)
	}
}
