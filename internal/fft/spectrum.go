// SPDX-License-Identifier: MIT
package fft

import "math"

// Spectrum wraps a real transform with a window function and the usual
// spectrum helpers. Buffers passed to it are transformed in place using the
// packed layout of RealForward.
type Spectrum struct {
	fft    *FFT
	window []float32 // nil for a rectangular window.
}

// NewSpectrum builds a spectrum helper for frames of the given size.
func NewSpectrum(size int, w Window, opts ...Option) (*Spectrum, error) {
	f, err := New(size, opts...)
	if err != nil {
		return nil, err
	}
	s := &Spectrum{fft: f}
	if w != Rectangular {
		s.window = w.Coefficients(size)
	}
	return s, nil
}

// Size returns the frame size.
func (s *Spectrum) Size() int { return s.fft.Len() }

// Forward applies the window and computes the packed half spectrum of
// data[:Size()] in place.
func (s *Spectrum) Forward(data []float32) {
	if s.window != nil {
		for i, w := range s.window {
			data[i] *= w
		}
	}
	s.fft.RealForward(data)
}

// ComplexForward transforms an interleaved complex buffer of 2*Size() floats.
// No window is applied.
func (s *Spectrum) ComplexForward(data []float32) {
	s.fft.ComplexForward(data)
}

// Backward restores the samples of a packed half spectrum, scaled by 1/n.
// The window is not undone.
func (s *Spectrum) Backward(data []float32) {
	s.fft.RealInverse(data, true)
}

// BinToHz returns the centre frequency of a bin.
func (s *Spectrum) BinToHz(bin int, sampleRate float32) float64 {
	return float64(bin) * float64(sampleRate) / float64(s.Size())
}

// HzToBin returns the bin closest to the given frequency.
func (s *Spectrum) HzToBin(hz float64, sampleRate float32) int {
	return int(math.Round(hz * float64(s.Size()) / float64(sampleRate)))
}

// Modulus returns |X[k]| from a packed half spectrum.
func (s *Spectrum) Modulus(data []float32, k int) float32 {
	re, im := s.bin(data, k)
	return float32(math.Hypot(float64(re), float64(im)))
}

// Magnitudes runs Forward on data and writes |X[k]| for k < len(out).
// out may hold at most Size()/2+1 values.
func (s *Spectrum) Magnitudes(data, out []float32) {
	s.Forward(data)
	for k := range out {
		out[k] = s.Modulus(data, k)
	}
}

// PowerPhase runs Forward on data and writes the magnitude and phase (in
// radians) of the first len(power) bins.
func (s *Spectrum) PowerPhase(data, power, phase []float32) {
	s.Forward(data)
	for k := range power {
		re, im := s.bin(data, k)
		power[k] = float32(math.Hypot(float64(re), float64(im)))
		phase[k] = float32(math.Atan2(float64(im), float64(re)))
	}
}

// bin extracts bin k, honouring the special slots of the packed layout.
func (s *Spectrum) bin(data []float32, k int) (re, im float32) {
	n := s.Size()
	switch {
	case k == 0:
		return data[0], 0
	case n%2 == 0 && k == n/2:
		return data[1], 0
	case n%2 == 1 && k == (n-1)/2:
		return data[2*k], data[1]
	default:
		return data[2*k], data[2*k+1]
	}
}

// Multiply stores the element-wise complex product of two interleaved
// buffers in data.
func Multiply(data, other []float32) {
	for i := 0; i+1 < len(data) && i+1 < len(other); i += 2 {
		re := data[i]*other[i] - data[i+1]*other[i+1]
		im := data[i]*other[i+1] + data[i+1]*other[i]
		data[i], data[i+1] = re, im
	}
}
