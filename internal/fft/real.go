// SPDX-License-Identifier: MIT
package fft

// Real transforms store the non-redundant half of the spectrum in n floats:
//
//	a[2k]   = Re[k], 0 <= k < (n+1)/2
//	a[2k+1] = Im[k], 0 < k < n/2 (rounded down for odd n)
//	a[1]    = Re[n/2] when n is even, Im[(n-1)/2] when n is odd
//
// The remaining bins follow from X[n-k] = conj(X[k]).

// RealForward computes the forward DFT of the n real samples in a[:n] and
// stores the packed half spectrum in their place.
func (f *FFT) RealForward(a []float32) {
	f.check(a, f.n)
	if f.n == 1 {
		return
	}

	if f.half != nil {
		// Pack even/odd samples as one complex sequence of length n/2 and
		// split the result using conjugate symmetry.
		h := f.n / 2
		z := f.work[:h]
		for k := range z {
			z[k] = complex(float64(a[2*k]), float64(a[2*k+1]))
		}
		f.half.t.transform(z, false)

		for k := 0; k <= h; k++ {
			zk := z[k%h]
			zn := conj(z[(h-k)%h])
			even := (zk + zn) * 0.5
			odd := mulNegI(zk-zn) * 0.5
			x := even + f.realTw[k]*odd
			switch k {
			case 0:
				a[0] = float32(real(x))
			case h:
				a[1] = float32(real(x))
			default:
				a[2*k] = float32(real(x))
				a[2*k+1] = float32(imag(x))
			}
		}
		return
	}

	for i := range f.work {
		f.work[i] = complex(float64(a[i]), 0)
	}
	f.t.transform(f.work, false)

	last := (f.n - 1) / 2
	a[0] = float32(real(f.work[0]))
	for k := 1; k < last; k++ {
		a[2*k] = float32(real(f.work[k]))
		a[2*k+1] = float32(imag(f.work[k]))
	}
	a[2*last] = float32(real(f.work[last]))
	a[1] = float32(imag(f.work[last]))
}

// RealInverse takes a packed half spectrum produced by RealForward and
// restores the n real samples, dividing by n when scale is set.
func (f *FFT) RealInverse(a []float32, scale bool) {
	f.check(a, f.n)
	if f.n == 1 {
		return
	}

	if f.half != nil {
		h := f.n / 2
		z := f.work[:h]
		for k := range z {
			xk := f.packedBin(a, k)
			xn := conj(f.packedBin(a, h-k))
			even := (xk + xn) * 0.5
			odd := (xk - xn) * 0.5 * conj(f.realTw[k])
			z[k] = even + mulI(odd)
		}
		f.half.t.transform(z, true)

		// The half-length inverse yields (n/2)*x.
		s := 2.0
		if scale {
			s = 1 / float64(h)
		}
		for k, v := range z {
			a[2*k] = float32(real(v) * s)
			a[2*k+1] = float32(imag(v) * s)
		}
		return
	}

	f.unpack(a)
	f.t.transform(f.work, true)
	s := 1.0
	if scale {
		s = 1 / float64(f.n)
	}
	for i, v := range f.work {
		a[i] = float32(real(v) * s)
	}
}

// RealForwardFull computes the forward DFT of the n real samples in a[:n]
// and writes all n complex bins, interleaved, to a[:2n].
func (f *FFT) RealForwardFull(a []float32) {
	f.check(a, 2*f.n)
	f.RealForward(a[:f.n])
	f.unpack(a)
	f.store(a, 1)
}

// RealInverseFull computes the inverse DFT of the n real values in a[:n]
// and writes all n complex results, interleaved, to a[:2n].
func (f *FFT) RealInverseFull(a []float32, scale bool) {
	f.RealForwardFull(a)
	s := float32(1)
	if scale {
		s = 1 / float32(f.n)
	}
	for i := 0; i < 2*f.n; i += 2 {
		a[i] *= s
		a[i+1] *= -s
	}
}

// packedBin returns bin k (0 <= k <= n/2) of an even-length packed spectrum.
func (f *FFT) packedBin(a []float32, k int) complex128 {
	switch k {
	case 0:
		return complex(float64(a[0]), 0)
	case f.n / 2:
		return complex(float64(a[1]), 0)
	default:
		return complex(float64(a[2*k]), float64(a[2*k+1]))
	}
}

// unpack expands a packed half spectrum in a into the full spectrum in work.
func (f *FFT) unpack(a []float32) {
	n := f.n
	w := f.work
	w[0] = complex(float64(a[0]), 0)
	if n%2 == 0 {
		h := n / 2
		w[h] = complex(float64(a[1]), 0)
		for k := 1; k < h; k++ {
			v := complex(float64(a[2*k]), float64(a[2*k+1]))
			w[k] = v
			w[n-k] = conj(v)
		}
		return
	}

	last := (n - 1) / 2
	for k := 1; k <= last; k++ {
		var v complex128
		if k == last {
			v = complex(float64(a[2*k]), float64(a[1]))
		} else {
			v = complex(float64(a[2*k]), float64(a[2*k+1]))
		}
		w[k] = v
		w[n-k] = conj(v)
	}
}
