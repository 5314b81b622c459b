// SPDX-License-Identifier: MIT
/*
Package fft implements discrete Fourier transforms of arbitrary length on
interleaved float32 buffers (even index = real part, odd index = imaginary).

The algorithm is picked once, when the FFT is created, from the factorization
of the length:

  - powers of two use a recursive split-radix transform,
  - lengths whose factors other than 2, 3, 4 and 5 multiply to less than 211
    use mixed-radix butterflies,
  - everything else uses Bluestein's chirp-z convolution on a power-of-two
    transform of at least 2n-1 points.

Twiddle factors, permutations and the Bluestein kernel are precomputed so that
repeated transforms of the same length do not allocate. Internally all
arithmetic is done in complex128.

An FFT keeps scratch buffers and is not safe for concurrent use. Large
transforms fan out over goroutines internally; the result does not depend on
the number of workers.
*/
package fft

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"pitchtrack/pkg/bitint"
)

// Plan identifies the algorithm family chosen for a transform length.
type Plan int

const (
	SplitRadix Plan = iota
	MixedRadix
	Bluestein
)

func (p Plan) String() string {
	switch p {
	case SplitRadix:
		return "split-radix"
	case MixedRadix:
		return "mixed-radix"
	case Bluestein:
		return "bluestein"
	default:
		return "unknown"
	}
}

// maxResidual is the bound on the product of factors other than 2, 3, 4 and
// 5 above which the mixed-radix path is slower than Bluestein.
const maxResidual = 211

var ErrInvalidSize = errors.New("fft: size must be at least 1")

// transformer computes an unscaled DFT in place. inverse selects the
// positive exponent.
type transformer interface {
	transform(x []complex128, inverse bool)
}

// FFT is a precomputed transform of a fixed length.
type FFT struct {
	n       int
	plan    Plan
	t       transformer
	workers int

	// Real transforms of even length run through a complex transform of
	// half the length.
	half   *FFT
	realTw []complex128 // exp(-2πik/n) for k <= n/2

	work []complex128
}

// Option configures an FFT.
type Option func(*FFT)

// WithWorkers sets the number of goroutines used for large transforms.
// Values below 2 disable the fan-out.
func WithWorkers(n int) Option {
	return func(f *FFT) {
		f.workers = n
	}
}

// New builds a transform of length n.
func New(n int, opts ...Option) (*FFT, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidSize, n)
	}

	f := &FFT{
		n:       n,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(f)
	}

	switch {
	case bitint.IsPowerOfTwo(n):
		f.plan = SplitRadix
		f.t = newSplitRadix(n, f.workers)
	default:
		taken, rest := bitint.Factor(n, 4, 2, 3, 5)
		if rest >= maxResidual {
			f.plan = Bluestein
			f.t = newBluestein(n, f.workers)
		} else {
			f.plan = MixedRadix
			f.t = newMixedRadix(n, append(taken, bitint.PrimeFactors(rest)...), f.workers)
		}
	}

	f.work = make([]complex128, n)
	if n%2 == 0 && n > 1 {
		half, err := New(n/2, WithWorkers(f.workers))
		if err != nil {
			return nil, err
		}
		f.half = half
		f.realTw = make([]complex128, n/2+1)
		for k := range f.realTw {
			s, c := math.Sincos(-2 * math.Pi * float64(k) / float64(n))
			f.realTw[k] = complex(c, s)
		}
	}
	return f, nil
}

// Len returns the transform length.
func (f *FFT) Len() int { return f.n }

// Plan returns the algorithm family in use.
func (f *FFT) Plan() Plan { return f.plan }

func (f *FFT) check(a []float32, want int) {
	if len(a) < want {
		panic(fmt.Sprintf("fft: buffer of length %d, need %d for n=%d", len(a), want, f.n))
	}
}

// ComplexForward computes the forward DFT of the n complex values in a[:2n].
func (f *FFT) ComplexForward(a []float32) {
	f.check(a, 2*f.n)
	f.load(a)
	f.t.transform(f.work, false)
	f.store(a, 1)
}

// ComplexInverse computes the inverse DFT of a[:2n], dividing by n when
// scale is set.
func (f *FFT) ComplexInverse(a []float32, scale bool) {
	f.check(a, 2*f.n)
	f.load(a)
	f.t.transform(f.work, true)
	s := 1.0
	if scale {
		s = 1 / float64(f.n)
	}
	f.store(a, s)
}

func (f *FFT) load(a []float32) {
	for i := range f.work {
		f.work[i] = complex(float64(a[2*i]), float64(a[2*i+1]))
	}
}

func (f *FFT) store(a []float32, scale float64) {
	for i, v := range f.work {
		a[2*i] = float32(real(v) * scale)
		a[2*i+1] = float32(imag(v) * scale)
	}
}
