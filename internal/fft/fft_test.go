// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	dspfft "github.com/mjibson/go-dsp/fft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Sizes covering every plan: powers of two, smooth composites, composites
// with a small odd residual and lengths with a large prime factor.
var testSizes = []int{1, 2, 3, 4, 5, 6, 7, 8, 12, 15, 16, 26, 45, 64, 196, 360, 1024, 1031, 422, 997}

func randomSignal(n int, seed uint64) []float64 {
	r := rand.New(rand.NewPCG(seed, 2024))
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Float64()*2 - 1
	}
	return out
}

func interleave(re, im []float64) []float32 {
	out := make([]float32, 2*len(re))
	for i := range re {
		out[2*i] = float32(re[i])
		if im != nil {
			out[2*i+1] = float32(im[i])
		}
	}
	return out
}

func tolerance(n int) float64 {
	return 1e-5*float64(n) + 1e-5
}

func TestPlanSelection(t *testing.T) {
	tests := []struct {
		n    int
		want Plan
	}{
		{1, SplitRadix},
		{2, SplitRadix},
		{1024, SplitRadix},
		{360, MixedRadix},
		{196, MixedRadix},
		{2 * 199, MixedRadix},
		{1031, Bluestein},
		{2 * 211, Bluestein},
	}
	for _, tt := range tests {
		f, err := New(tt.n)
		require.NoError(t, err)
		assert.Equal(t, tt.want, f.Plan(), "n=%d", tt.n)
		assert.Equal(t, tt.n, f.Len())
	}
}

func TestNewRejectsInvalidSize(t *testing.T) {
	for _, n := range []int{0, -4} {
		f, err := New(n)
		assert.ErrorIs(t, err, ErrInvalidSize)
		assert.Nil(t, f)
	}
}

func TestComplexForwardMatchesGonum(t *testing.T) {
	for _, n := range testSizes {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			re, im := randomSignal(n, 1), randomSignal(n, 2)
			src := make([]complex128, n)
			for i := range src {
				src[i] = complex(float64(float32(re[i])), float64(float32(im[i])))
			}
			want := fourier.NewCmplxFFT(n).Coefficients(nil, src)

			f, err := New(n)
			require.NoError(t, err)
			a := interleave(re, im)
			f.ComplexForward(a)

			for k := range want {
				assert.InDelta(t, real(want[k]), a[2*k], tolerance(n), "re bin %d", k)
				assert.InDelta(t, imag(want[k]), a[2*k+1], tolerance(n), "im bin %d", k)
			}
		})
	}
}

func TestRealForwardFullMatchesGoDSP(t *testing.T) {
	for _, n := range testSizes {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			x := randomSignal(n, 3)
			for i := range x {
				x[i] = float64(float32(x[i]))
			}
			want := dspfft.FFTReal(x)

			f, err := New(n)
			require.NoError(t, err)
			a := make([]float32, 2*n)
			for i, v := range x {
				a[i] = float32(v)
			}
			f.RealForwardFull(a)

			for k := range want {
				assert.InDelta(t, real(want[k]), a[2*k], tolerance(n), "re bin %d", k)
				assert.InDelta(t, imag(want[k]), a[2*k+1], tolerance(n), "im bin %d", k)
			}
		})
	}
}

func TestRealForwardPackedLayout(t *testing.T) {
	for _, n := range []int{2, 3, 8, 9, 360, 1031} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			x := randomSignal(n, 4)
			f, err := New(n)
			require.NoError(t, err)

			full := interleave(x, nil)
			f.ComplexForward(full)

			packed := make([]float32, n)
			for i, v := range x {
				packed[i] = float32(v)
			}
			f.RealForward(packed)

			tol := tolerance(n)
			assert.InDelta(t, full[0], packed[0], tol)
			if n%2 == 0 {
				assert.InDelta(t, full[n], packed[1], tol, "Re[n/2]")
				for k := 1; k < n/2; k++ {
					assert.InDelta(t, full[2*k], packed[2*k], tol)
					assert.InDelta(t, full[2*k+1], packed[2*k+1], tol)
				}
				return
			}
			last := (n - 1) / 2
			assert.InDelta(t, full[2*last], packed[2*last], tol, "Re[(n-1)/2]")
			assert.InDelta(t, full[2*last+1], packed[1], tol, "Im[(n-1)/2]")
			for k := 1; k < last; k++ {
				assert.InDelta(t, full[2*k], packed[2*k], tol)
				assert.InDelta(t, full[2*k+1], packed[2*k+1], tol)
			}
		})
	}
}

func TestInverseOfForward(t *testing.T) {
	for _, n := range testSizes {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			f, err := New(n)
			require.NoError(t, err)

			impulse := make([]float64, n)
			impulse[0] = 1
			for name, x := range map[string][]float64{
				"random":  randomSignal(n, 5),
				"impulse": impulse,
			} {
				want := interleave(x, randomSignal(n, 6))
				a := append([]float32(nil), want...)
				f.ComplexForward(a)
				f.ComplexInverse(a, true)
				assert.InDeltaSlice(t, want, a, 1e-5, "complex %s", name)

				samples := make([]float32, n)
				for i, v := range x {
					samples[i] = float32(v)
				}
				b := append([]float32(nil), samples...)
				f.RealForward(b)
				f.RealInverse(b, true)
				assert.InDeltaSlice(t, samples, b, 1e-5, "real %s", name)
			}
		})
	}
}

func TestUnscaledInverse(t *testing.T) {
	for _, n := range []int{8, 9, 12, 1031} {
		f, err := New(n)
		require.NoError(t, err)
		x := randomSignal(n, 7)

		a := interleave(x, nil)
		f.ComplexForward(a)
		f.ComplexInverse(a, false)
		for i := range x {
			assert.InDelta(t, x[i]*float64(n), a[2*i], 1e-3*float64(n))
		}

		b := make([]float32, n)
		for i, v := range x {
			b[i] = float32(v)
		}
		f.RealForward(b)
		f.RealInverse(b, false)
		for i := range x {
			assert.InDelta(t, x[i]*float64(n), b[i], 1e-3*float64(n), "n=%d sample %d", n, i)
		}
	}
}

func TestRealInverseFullIsConjugateOfForward(t *testing.T) {
	for _, n := range []int{16, 15} {
		f, err := New(n)
		require.NoError(t, err)
		x := randomSignal(n, 8)

		fwd := make([]float32, 2*n)
		inv := make([]float32, 2*n)
		for i, v := range x {
			fwd[i] = float32(v)
			inv[i] = float32(v)
		}
		f.RealForwardFull(fwd)
		f.RealInverseFull(inv, true)

		for k := range n {
			assert.InDelta(t, fwd[2*k]/float32(n), inv[2*k], 1e-6)
			assert.InDelta(t, -fwd[2*k+1]/float32(n), inv[2*k+1], 1e-6)
		}

		// The complex inverse of the full forward spectrum restores x.
		f.ComplexInverse(fwd, true)
		for i := range x {
			assert.InDelta(t, x[i], fwd[2*i], 1e-5)
			assert.InDelta(t, 0, fwd[2*i+1], 1e-5)
		}
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	for _, n := range []int{1 << 15, 4 * 3 * 8192, 211 * 23} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			seq, err := New(n, WithWorkers(1))
			require.NoError(t, err)
			par, err := New(n, WithWorkers(4))
			require.NoError(t, err)
			require.Equal(t, seq.Plan(), par.Plan())

			x := interleave(randomSignal(n, 9), randomSignal(n, 10))
			a := append([]float32(nil), x...)
			b := append([]float32(nil), x...)
			seq.ComplexForward(a)
			par.ComplexForward(b)
			assert.Equal(t, a, b)

			seq.ComplexInverse(a, true)
			assert.InDeltaSlice(t, x, a, 1e-4)
		})
	}
}

func TestTransformsDoNotAllocate(t *testing.T) {
	for _, n := range []int{1024, 360, 1031} {
		f, err := New(n, WithWorkers(1))
		require.NoError(t, err)
		a := interleave(randomSignal(n, 11), nil)

		allocs := testing.AllocsPerRun(50, func() {
			f.ComplexForward(a)
			f.ComplexInverse(a, true)
			f.RealForward(a[:n])
			f.RealInverse(a[:n], true)
		})
		assert.Zero(t, allocs, "n=%d", n)
	}
}

func TestSpectrumFindsSinePeak(t *testing.T) {
	const (
		size       = 1024
		sampleRate = 44100
	)
	s, err := NewSpectrum(size, Hann)
	require.NoError(t, err)

	bin := 40
	freq := s.BinToHz(bin, sampleRate)
	data := make([]float32, size)
	for i := range data {
		data[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
	}

	mags := make([]float32, size/2+1)
	s.Magnitudes(data, mags)

	peak := 0
	for k := range mags {
		if mags[k] > mags[peak] {
			peak = k
		}
	}
	assert.Equal(t, bin, peak)
	assert.Equal(t, bin, s.HzToBin(freq, sampleRate))
}

func TestSpectrumPowerPhase(t *testing.T) {
	s, err := NewSpectrum(8, Rectangular)
	require.NoError(t, err)

	// A cosine at bin 1 has zero phase, a sine has -π/2.
	data := make([]float32, 8)
	for i := range data {
		data[i] = float32(math.Sin(2 * math.Pi * float64(i) / 8))
	}
	power := make([]float32, 5)
	phase := make([]float32, 5)
	s.PowerPhase(data, power, phase)

	assert.InDelta(t, 4, power[1], 1e-5)
	assert.InDelta(t, -math.Pi/2, phase[1], 1e-5)
	assert.InDelta(t, 0, power[4], 1e-5)
}

func TestMultiply(t *testing.T) {
	a := []float32{1, 2, 0, 1}
	b := []float32{3, -1, 0, 1}
	Multiply(a, b)
	assert.Equal(t, []float32{5, 5, -1, 0}, a)
}

func TestWindows(t *testing.T) {
	hann := Hann.Coefficients(65)
	assert.InDelta(t, 0, hann[0], 1e-6)
	assert.InDelta(t, 1, hann[32], 1e-6)
	assert.InDelta(t, hann[10], hann[54], 1e-6)

	for _, w := range []Window{Rectangular, Hamming, Blackman, BlackmanHarris, BlackmanNuttall, Nuttall, BartlettHann, ScaledHamming, BlackmanHarrisNuttall} {
		c := w.Coefficients(128)
		require.Len(t, c, 128)
		for i, v := range c {
			require.False(t, math.IsNaN(float64(v)), "%s[%d]", w, i)
		}
	}

	got, err := ParseWindow("Blackman-Harris")
	require.NoError(t, err)
	assert.Equal(t, BlackmanHarris, got)

	got, err = ParseWindow("hanning")
	require.NoError(t, err)
	assert.Equal(t, Hann, got)

	got, err = ParseWindow("kaiser")
	assert.Error(t, err)
	assert.Equal(t, Hann, got)
}

func BenchmarkComplexForward(b *testing.B) {
	for _, n := range []int{1024, 1000, 1031} {
		b.Run(fmt.Sprint(n), func(b *testing.B) {
			f, err := New(n, WithWorkers(1))
			if err != nil {
				b.Fatal(err)
			}
			a := interleave(randomSignal(n, 12), nil)
			b.ReportAllocs()
			for b.Loop() {
				f.ComplexForward(a)
			}
		})
	}
}
