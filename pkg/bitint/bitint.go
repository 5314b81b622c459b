// SPDX-License-Identifier: MIT
/*
Package bitint holds the integer helpers used when sizing transforms and
buffers: power-of-two rounding and small-factor decomposition.

All functions are allocation free except Factor, which returns a new slice.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two that is >= size.
// Sizes <= 0 return 1.
//
//	Input  Output
//	4      4
//	5      8
//	2047   2048
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	// size-1 keeps exact powers of two unchanged: Len(7) = 3, 1<<3 = 8.
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Factor divides n by each of the given factors as often as possible, in
// order, and returns the factors taken plus whatever remains. With factors
// {4, 2, 3, 5} and n = 360 it returns [4 2 3 3 5] and 1.
func Factor(n int, factors ...int) (taken []int, rest int) {
	rest = n
	for _, f := range factors {
		if f < 2 {
			continue
		}
		for rest > 1 && rest%f == 0 {
			taken = append(taken, f)
			rest /= f
		}
	}
	return taken, rest
}

// PrimeFactors returns the prime decomposition of n in ascending order.
func PrimeFactors(n int) []int {
	var out []int
	for p := 2; p*p <= n; p++ {
		for n%p == 0 {
			out = append(out, p)
			n /= p
		}
	}
	if n > 1 {
		out = append(out, n)
	}
	return out
}
