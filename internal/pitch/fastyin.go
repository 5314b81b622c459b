// SPDX-License-Identifier: MIT
package pitch

import (
	"fmt"

	"github.com/tphakala/simd/f32"

	"pitchtrack/internal/fft"
)

// FastYin is YIN with the difference function computed from an FFT
// autocorrelation in O(W log W).
type FastYin struct {
	sampleRate float32
	threshold  float32
	windowSize int

	buf    []float32 // Difference function, W/2 lags.
	power  []float32 // Σ x[k+τ]² over the first half, per lag.
	audio  []float32 // Interleaved transform of the window, then the ACF.
	kernel []float32 // Interleaved transform of the reversed first half.
	fft    *fft.FFT
}

// NewFastYin creates a FastYin detector for windows of windowSize samples.
func NewFastYin(sampleRate float32, windowSize int, threshold float64) (*FastYin, error) {
	t, err := fft.New(windowSize, fft.WithWorkers(1))
	if err != nil {
		return nil, fmt.Errorf("pitch: %w", err)
	}
	return &FastYin{
		sampleRate: sampleRate,
		threshold:  float32(threshold),
		windowSize: windowSize,
		buf:        make([]float32, windowSize/2),
		power:      make([]float32, windowSize/2),
		audio:      make([]float32, 2*windowSize),
		kernel:     make([]float32, 2*windowSize),
		fft:        t,
	}, nil
}

func (f *FastYin) GetPitch(window []float32) Estimate {
	if len(window) < f.windowSize {
		// The transform is sized for full windows, so short final
		// windows use the direct difference.
		d := f.buf[:len(window)/2]
		if len(d) < 3 {
			return unpitched(0)
		}
		difference(window, d)
		return yinEstimate(d, f.threshold, f.sampleRate, true)
	}

	f.difference(window[:f.windowSize])
	return yinEstimate(f.buf, f.threshold, f.sampleRate, true)
}

// difference computes d(τ) = p(0) + p(τ) - 2·acf(τ), where p(τ) is the
// energy of x[τ:τ+W/2] and acf(τ) = Σ x[k]·x[k+τ] over the first half.
func (f *FastYin) difference(x []float32) {
	half := len(f.buf)

	f.power[0] = f32.DotProductUnsafe(x[:half], x[:half])
	for tau := 1; tau < half; tau++ {
		out, in := x[tau-1], x[tau+half-1]
		f.power[tau] = f.power[tau-1] - out*out + in*in
	}

	f.correlate(x)

	p0 := f.power[0]
	for j := range f.buf {
		f.buf[j] = p0 + f.power[j] - 2*f.audio[2*(half-1+j)]
	}
}

// correlate leaves the circular convolution of x with its reversed first
// half in f.audio, interleaved. Index half-1+τ holds acf(τ).
func (f *FastYin) correlate(x []float32) {
	half := len(f.buf)

	clear(f.audio)
	for j, v := range x {
		f.audio[2*j] = v
	}
	f.fft.ComplexForward(f.audio)

	clear(f.kernel)
	for j := range half {
		f.kernel[2*j] = x[half-1-j]
	}
	f.fft.ComplexForward(f.kernel)

	fft.Multiply(f.audio, f.kernel)
	f.fft.ComplexInverse(f.audio, true)
}
