// SPDX-License-Identifier: MIT
package bitint

import (
	"fmt"
	"slices"
	"testing"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{-10, 1},
		{0, 1},
		{1, 1},
		{8, 8},
		{10, 16},
		{1000, 1024},
		{2047, 2048},
		{3, 4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%d", tt.n, tt.expected), func(t *testing.T) {
			if got := NextPowerOfTwo(tt.n); got != tt.expected {
				t.Errorf("NextPowerOfTwo(%d) = %d, expected %d", tt.n, got, tt.expected)
			}
		})
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, n := range []int{1, 2, 4, 1024, 1 << 20} {
		if !IsPowerOfTwo(n) {
			t.Errorf("IsPowerOfTwo(%d) = false", n)
		}
	}
	for _, n := range []int{-8, 0, 3, 6, 1023, 360} {
		if IsPowerOfTwo(n) {
			t.Errorf("IsPowerOfTwo(%d) = true", n)
		}
	}
}

func TestFactor(t *testing.T) {
	tests := []struct {
		n     int
		taken []int
		rest  int
	}{
		{360, []int{4, 2, 3, 3, 5}, 1},
		{1031, nil, 1031},
		{14, []int{2}, 7},
		{1, nil, 1},
	}
	for _, tt := range tests {
		taken, rest := Factor(tt.n, 4, 2, 3, 5)
		if !slices.Equal(taken, tt.taken) || rest != tt.rest {
			t.Errorf("Factor(%d) = %v, %d; want %v, %d", tt.n, taken, rest, tt.taken, tt.rest)
		}
	}
}

func TestPrimeFactors(t *testing.T) {
	if got := PrimeFactors(2 * 7 * 7 * 13); !slices.Equal(got, []int{2, 7, 7, 13}) {
		t.Errorf("PrimeFactors = %v", got)
	}
	if got := PrimeFactors(1031); !slices.Equal(got, []int{1031}) {
		t.Errorf("PrimeFactors(1031) = %v", got)
	}
}

func TestHelpersDoNotAllocate(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		_ = NextPowerOfTwo(1000)
		_ = IsPowerOfTwo(1024)
	})
	if allocs != 0 {
		t.Errorf("expected 0 allocations, got %f", allocs)
	}
}
