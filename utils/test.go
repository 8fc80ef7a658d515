package utils

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func AssertEqualWP[T comparable](t *testing.T, expected T, real T, prefixMsg string) {
	t.Helper()
	if expected != real {
		t.Errorf("%sexpect %v, but got %v", prefixMsg, expected, real)
	}
}

func AssertEqual[T comparable](t *testing.T, expected T, real T) {
	t.Helper()
	AssertEqualWP(t, expected, real, "")
}

func AssertEqualSlice[T comparable, L ~[]T](t *testing.T, expected L, real L) {
	t.Helper()
	AssertEqualSliceWP(t, expected, real, "")
}

func AssertEqualSliceWP[T comparable, L ~[]T](t *testing.T, expected L, real L, prefixMsg string) {
	t.Helper()
	if len(expected) != len(real) {
		t.Errorf("%sexpect %v, but got %v", prefixMsg, expected, real)
		return
	}
	for i := 0; i < len(expected); i++ {
		if expected[i] != real[i] {
			t.Errorf("%sexpect %v, but got %v", prefixMsg, expected, real)
			return
		}
	}
}

// AssertDeepEqual compares arbitrary values and prints a -expected +real diff.
func AssertDeepEqual(t *testing.T, expected any, real any, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(expected, real, opts...); diff != "" {
		t.Errorf("mismatch (-expected +real):\n%s", diff)
	}
}

func AssertTrue(t *testing.T, real bool) {
	t.Helper()
	AssertEqualWP(t, true, real, "")
}

func AssertTrueWP(t *testing.T, real bool, prefixMsg string) {
	t.Helper()
	AssertEqualWP(t, true, real, prefixMsg)
}

func AssertFalse(t *testing.T, real bool) {
	t.Helper()
	AssertEqualWP(t, false, real, "")
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expect an error, but got nil")
	}
}
