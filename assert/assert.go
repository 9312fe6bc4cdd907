// Package assert holds the small comparison helpers the tests use.
package assert

import (
	"reflect"
	"testing"
)

// Equal fails the test when got != want.
func Equal[T comparable](t *testing.T, want, got T, msg string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v, want %v", msg, got, want)
	}
}

// NotEqual fails the test when got == unwanted.
func NotEqual[T comparable](t *testing.T, unwanted, got T, msg string) {
	t.Helper()
	if got == unwanted {
		t.Errorf("%s: got %v, expected a different value", msg, got)
	}
}

// True fails the test when cond is false.
func True(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Errorf("%s: expected true", msg)
	}
}

// False fails the test when cond is true.
func False(t *testing.T, cond bool, msg string) {
	t.Helper()
	if cond {
		t.Errorf("%s: expected false", msg)
	}
}

// Nil fails the test when v is non-nil.
func Nil(t *testing.T, v any, msg string) {
	t.Helper()
	if !isNil(v) {
		t.Errorf("%s: got %v, want nil", msg, v)
	}
}

// NotNil fails the test when v is nil.
func NotNil(t *testing.T, v any, msg string) {
	t.Helper()
	if isNil(v) {
		t.Errorf("%s: got nil", msg)
	}
}

// Greater fails the test when got <= threshold.
func Greater(t *testing.T, got, threshold int, msg string) {
	t.Helper()
	if got <= threshold {
		t.Errorf("%s: got %d, want > %d", msg, got, threshold)
	}
}

// NoError fails the test when err is non-nil.
func NoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map,
		reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
