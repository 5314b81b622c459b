// SPDX-License-Identifier: MIT
package fft

import (
	"math"

	"pitchtrack/pkg/bitint"
)

// bluestein evaluates a DFT of any length as a circular convolution with a
// chirp, carried out by a power-of-two transform of length m >= 2n-1.
type bluestein struct {
	n, m    int
	chirp   []complex128 // exp(-πik²/n)
	kernel  []complex128 // Forward transform of the conjugate chirp, wrapped.
	inner   *splitRadix
	buf     []complex128
	workers int
}

func newBluestein(n, workers int) *bluestein {
	m := bitint.NextPowerOfTwo(2*n - 1)
	b := &bluestein{
		n:       n,
		m:       m,
		chirp:   make([]complex128, n),
		kernel:  make([]complex128, m),
		inner:   newSplitRadix(m, workers),
		buf:     make([]complex128, m),
		workers: workers,
	}

	// k² is reduced modulo 2n so the angle stays small for large k.
	twoN := int64(2 * n)
	for k := range n {
		kk := (int64(k) * int64(k)) % twoN
		s, c := math.Sincos(-math.Pi * float64(kk) / float64(n))
		b.chirp[k] = complex(c, s)
	}

	b.kernel[0] = conj(b.chirp[0])
	for k := 1; k < n; k++ {
		w := conj(b.chirp[k])
		b.kernel[k] = w
		b.kernel[m-k] = w
	}
	b.inner.transform(b.kernel, false)
	return b
}

// transform runs the forward chirp-z algorithm. The inverse is obtained as
// conj(DFT(conj(x))).
func (b *bluestein) transform(x []complex128, inverse bool) {
	if inverse {
		for i := range x[:b.n] {
			x[i] = conj(x[i])
		}
	}

	for k := range b.n {
		b.buf[k] = x[k] * b.chirp[k]
	}
	clear(b.buf[b.n:])

	b.inner.transform(b.buf, false)
	if b.workers > 1 && b.m >= parallelThreshold {
		parallelFor(b.workers, b.m, b.multiplyKernel)
	} else {
		b.multiplyKernel(0, b.m)
	}
	b.inner.transform(b.buf, true)

	scale := complex(1/float64(b.m), 0)
	for k := range b.n {
		v := b.buf[k] * b.chirp[k] * scale
		if inverse {
			v = conj(v)
		}
		x[k] = v
	}
}

func (b *bluestein) multiplyKernel(lo, hi int) {
	for i := lo; i < hi; i++ {
		b.buf[i] *= b.kernel[i]
	}
}
