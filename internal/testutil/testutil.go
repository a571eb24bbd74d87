// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common stream-construction and tolerance
// helpers to reduce code duplication across test files.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/streamnorm/norm"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Ramp returns the sequence 0, 1, ..., n-1 as lane values. It mirrors
// the ramp stimulus the hardware testbenches drive per window.
func Ramp[T norm.Lane](n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = T(i)
	}
	return out
}

// Repeat concatenates count copies of values, one per window.
func Repeat[T norm.Lane](values []T, count int) []T {
	out := make([]T, 0, len(values)*count)
	for i := 0; i < count; i++ {
		out = append(out, values...)
	}
	return out
}

// Chunks splits values into simd-wide chunks. The length of values
// must be a multiple of simd; pipelines have no partial-chunk path so
// a remainder is a test bug.
func Chunks[T norm.Lane](t *testing.T, values []T, simd int) [][]T {
	t.Helper()
	if simd <= 0 || len(values)%simd != 0 {
		t.Fatalf("cannot chunk %d values into lanes of %d", len(values), simd)
	}
	chunks := make([][]T, 0, len(values)/simd)
	for i := 0; i < len(values); i += simd {
		chunk := make([]T, simd)
		copy(chunk, values[i:i+simd])
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Flatten joins chunks back into one sample sequence.
func Flatten[T norm.Lane](chunks [][]T) []T {
	var out []T
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// AssertAllClose fails the test unless got and want agree elementwise
// within tol.
func AssertAllClose[T norm.Float](t *testing.T, got []T, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d values, want %d", len(got), len(want))
	}
	for i := range got {
		if diff := math.Abs(float64(got[i]) - want[i]); diff > tol {
			t.Fatalf("value %d: got %g, want %g (diff %g > tol %g)",
				i, float64(got[i]), want[i], diff, tol)
		}
	}
}
