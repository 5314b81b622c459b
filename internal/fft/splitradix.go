// SPDX-License-Identifier: MIT
package fft

import (
	"math"

	"golang.org/x/sync/errgroup"
)

// splitRadix is a recursive split-radix transform for power-of-two lengths.
//
// The input is first gathered through a precomputed permutation so that every
// level of the recursion works on contiguous sub-slices: the first half holds
// the even samples, the third quarter the samples 4k+1 and the last quarter
// the samples 4k+3.
type splitRadix struct {
	n       int
	tw      []complex128 // exp(-2πik/n)
	perm    []int
	scratch []complex128
	workers int
}

func newSplitRadix(n, workers int) *splitRadix {
	s := &splitRadix{
		n:       n,
		tw:      twiddles(n),
		perm:    splitRadixOrder(make([]int, 0, n), n, 0, 1),
		scratch: make([]complex128, n),
		workers: workers,
	}
	return s
}

// twiddles returns exp(-2πik/n) for k < n.
func twiddles(n int) []complex128 {
	tw := make([]complex128, n)
	for k := range tw {
		s, c := math.Sincos(-2 * math.Pi * float64(k) / float64(n))
		tw[k] = complex(c, s)
	}
	return tw
}

func splitRadixOrder(dst []int, n, offset, stride int) []int {
	switch n {
	case 1:
		return append(dst, offset)
	case 2:
		return append(dst, offset, offset+stride)
	}
	dst = splitRadixOrder(dst, n/2, offset, 2*stride)
	dst = splitRadixOrder(dst, n/4, offset+stride, 4*stride)
	return splitRadixOrder(dst, n/4, offset+3*stride, 4*stride)
}

func (s *splitRadix) transform(x []complex128, inverse bool) {
	for i, j := range s.perm {
		s.scratch[i] = x[j]
	}
	s.pass(s.scratch, inverse)
	copy(x, s.scratch)
}

func (s *splitRadix) pass(a []complex128, inverse bool) {
	n := len(a)
	switch n {
	case 1:
		return
	case 2:
		a[0], a[1] = a[0]+a[1], a[0]-a[1]
		return
	}

	h, q := n/2, n/4
	if s.workers > 1 && n >= parallelThreshold {
		var g errgroup.Group
		g.Go(func() error { s.pass(a[:h], inverse); return nil })
		g.Go(func() error { s.pass(a[h:h+q], inverse); return nil })
		g.Go(func() error { s.pass(a[h+q:], inverse); return nil })
		_ = g.Wait()
	} else {
		s.pass(a[:h], inverse)
		s.pass(a[h:h+q], inverse)
		s.pass(a[h+q:], inverse)
	}

	if s.workers > 1 && q >= parallelThreshold {
		parallelFor(s.workers, q, func(lo, hi int) {
			s.butterflies(a, lo, hi, inverse)
		})
		return
	}
	s.butterflies(a, 0, q, inverse)
}

// butterflies combines the three sub-transforms for output bins k in
// [lo, hi) of each quarter.
func (s *splitRadix) butterflies(a []complex128, lo, hi int, inverse bool) {
	n := len(a)
	h, q := n/2, n/4
	stride := s.n / n
	for k := lo; k < hi; k++ {
		w1 := s.tw[k*stride]
		w3 := s.tw[3*k*stride]
		if inverse {
			w1 = conj(w1)
			w3 = conj(w3)
		}
		z1 := w1 * a[h+k]
		z3 := w3 * a[h+q+k]
		sum := z1 + z3
		// -i*(z1-z3) going forward, +i*(z1-z3) going back.
		rot := mulNegI(z1 - z3)
		if inverse {
			rot = -rot
		}
		u0, u1 := a[k], a[k+q]
		a[k] = u0 + sum
		a[k+h] = u0 - sum
		a[k+q] = u1 + rot
		a[k+h+q] = u1 - rot
	}
}

func conj(z complex128) complex128 {
	return complex(real(z), -imag(z))
}

// mulI returns i*z.
func mulI(z complex128) complex128 {
	return complex(-imag(z), real(z))
}

// mulNegI returns -i*z.
func mulNegI(z complex128) complex128 {
	return complex(imag(z), -real(z))
}
