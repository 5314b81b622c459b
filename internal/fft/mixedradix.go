// SPDX-License-Identifier: MIT
package fft

import "math"

var (
	sin60  = math.Sqrt(3) / 2
	cos72  = math.Cos(2 * math.Pi / 5)
	sin72  = math.Sin(2 * math.Pi / 5)
	cos144 = math.Cos(4 * math.Pi / 5)
	sin144 = math.Sin(4 * math.Pi / 5)
)

// mixedRadix is a recursive decimation-in-time transform over a list of
// factors. Radix 2, 3, 4 and 5 have dedicated butterflies; any other prime
// uses the generic O(p²) butterfly.
type mixedRadix struct {
	n       int
	factors []int
	tw      []complex128 // exp(-2πik/n)
	scratch []complex128
	tmp     []complex128 // One butterfly's inputs, sized to the largest factor.
	workers int
}

func newMixedRadix(n int, factors []int, workers int) *mixedRadix {
	largest := 0
	for _, p := range factors {
		largest = max(largest, p)
	}
	return &mixedRadix{
		n:       n,
		factors: factors,
		tw:      twiddles(n),
		scratch: make([]complex128, n),
		tmp:     make([]complex128, largest),
		workers: workers,
	}
}

func (m *mixedRadix) transform(x []complex128, inverse bool) {
	m.decimate(m.scratch, x, m.n, 1, 0, inverse)
	copy(x, m.scratch)
}

// decimate writes the DFT of src[0], src[stride], ... (n values) into dst.
func (m *mixedRadix) decimate(dst, src []complex128, n, stride, depth int, inverse bool) {
	if n == 1 {
		dst[0] = src[0]
		return
	}
	p := m.factors[depth]
	q := n / p
	for r := range p {
		m.decimate(dst[r*q:(r+1)*q], src[r*stride:], q, stride*p, depth+1, inverse)
	}

	if m.workers > 1 && q >= parallelThreshold {
		parallelFor(m.workers, q, func(lo, hi int) {
			m.combine(dst[:n], p, q, lo, hi, make([]complex128, p), inverse)
		})
		return
	}
	m.combine(dst[:n], p, q, 0, q, m.tmp[:p], inverse)
}

// combine merges p sub-transforms of length q held back to back in a into
// one transform of length p*q, for output columns k in [lo, hi).
func (m *mixedRadix) combine(a []complex128, p, q, lo, hi int, t []complex128, inverse bool) {
	stride := m.n / (p * q)
	for k := lo; k < hi; k++ {
		t[0] = a[k]
		for r := 1; r < p; r++ {
			w := m.tw[r*k*stride]
			if inverse {
				w = conj(w)
			}
			t[r] = a[r*q+k] * w
		}

		switch p {
		case 2:
			a[k] = t[0] + t[1]
			a[k+q] = t[0] - t[1]

		case 3:
			s := t[1] + t[2]
			c := t[0] - s*0.5
			rot := mulNegI(t[1]-t[2]) * complex(sin60, 0)
			if inverse {
				rot = -rot
			}
			a[k] = t[0] + s
			a[k+q] = c + rot
			a[k+2*q] = c - rot

		case 4:
			s02, d02 := t[0]+t[2], t[0]-t[2]
			s13 := t[1] + t[3]
			rot := mulNegI(t[1] - t[3])
			if inverse {
				rot = -rot
			}
			a[k] = s02 + s13
			a[k+q] = d02 + rot
			a[k+2*q] = s02 - s13
			a[k+3*q] = d02 - rot

		case 5:
			a1, b1 := t[1]+t[4], t[1]-t[4]
			a2, b2 := t[2]+t[3], t[2]-t[3]
			c1 := t[0] + a1*complex(cos72, 0) + a2*complex(cos144, 0)
			c2 := t[0] + a1*complex(cos144, 0) + a2*complex(cos72, 0)
			r1 := mulNegI(b1*complex(sin72, 0) + b2*complex(sin144, 0))
			r2 := mulNegI(b1*complex(sin144, 0) - b2*complex(sin72, 0))
			if inverse {
				r1, r2 = -r1, -r2
			}
			a[k] = t[0] + a1 + a2
			a[k+q] = c1 + r1
			a[k+4*q] = c1 - r1
			a[k+2*q] = c2 + r2
			a[k+3*q] = c2 - r2

		default:
			m.generic(a, t[:p], p, q, k, inverse)
		}
	}
}

// generic evaluates a length-p DFT of t directly and scatters it into a.
func (m *mixedRadix) generic(a, t []complex128, p, q, k int, inverse bool) {
	step := m.n / p
	for s := range p {
		sum := t[0]
		for r := 1; r < p; r++ {
			w := m.tw[((r*s)%p)*step]
			if inverse {
				w = conj(w)
			}
			sum += t[r] * w
		}
		a[k+s*q] = sum
	}
}
