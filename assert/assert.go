// Package assert provides minimal test assertions.
package assert

import (
	"reflect"
	"strings"
	"testing"
)

// Equal fails the test if actual != expected
func Equal[T comparable](t *testing.T, expected, actual T, msg string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// NotEqual fails the test if actual == expected
func NotEqual[T comparable](t *testing.T, expected, actual T, msg string) {
	t.Helper()
	if actual == expected {
		t.Errorf("%s: expected values to differ, both %v", msg, actual)
	}
}

// True fails the test if cond is false
func True(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Errorf("%s: expected true", msg)
	}
}

// False fails the test if cond is true
func False(t *testing.T, cond bool, msg string) {
	t.Helper()
	if cond {
		t.Errorf("%s: expected false", msg)
	}
}

// Nil fails the test if v is a non-nil value
func Nil(t *testing.T, v any, msg string) {
	t.Helper()
	if !isNil(v) {
		t.Errorf("%s: expected nil, got %v", msg, v)
	}
}

// NotNil fails the test if v is nil
func NotNil(t *testing.T, v any, msg string) {
	t.Helper()
	if isNil(v) {
		t.Errorf("%s: expected non-nil", msg)
	}
}

// Greater fails the test if a <= b
func Greater[T int | int64 | float64](t *testing.T, a, b T, msg string) {
	t.Helper()
	if a <= b {
		t.Errorf("%s: expected %v > %v", msg, a, b)
	}
}

// NoError fails the test if err is non-nil
func NoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

// Error fails the test if err is nil
func Error(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected an error", msg)
	}
}

// Contains fails the test if s does not contain substr
func Contains(t *testing.T, s, substr string, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: %q does not contain %q", msg, s, substr)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
