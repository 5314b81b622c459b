// SPDX-License-Identifier: MIT
package filter

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

// MinLowPassFSFrequency is the lowest cut-off accepted by NewLowPassFS.
const MinLowPassFSFrequency = 60

// NewLowPassSP returns a single-pole low-pass filter.
func NewLowPassSP(frequency, sampleRate float32) *IIR {
	return newIIR("lowpass-sp", frequency, sampleRate, 0, lowPassSP)
}

// NewLowPassFS returns a four-stage low-pass filter. Frequencies below
// MinLowPassFSFrequency are raised to it.
func NewLowPassFS(frequency, sampleRate float32) *IIR {
	return newIIR("lowpass-fs", frequency, sampleRate, MinLowPassFSFrequency, lowPassFS)
}

// lowPassSP: y[n] = (1-x)·x[n] + x·y[n-1].
func lowPassSP(frequency, sampleRate float32) []biquad.Coefficients {
	x := math.Exp(-2 * math.Pi * float64(frequency/sampleRate))
	return []biquad.Coefficients{{B0: 1 - x, A1: -x}}
}

// lowPassFS: y[n] = (1-x)⁴·x[n] + 4x·y[n-1] - 6x²·y[n-2] + 4x³·y[n-3] - x⁴·y[n-4].
// The denominator is (1 - x·z⁻¹)⁴, run as two identical sections of
// (1 - x·z⁻¹)² with gain (1-x)² each.
func lowPassFS(frequency, sampleRate float32) []biquad.Coefficients {
	x := math.Exp(-14 * float64(frequency/sampleRate))
	s := biquad.Coefficients{B0: (1 - x) * (1 - x), A1: -2 * x, A2: x * x}
	return []biquad.Coefficients{s, s}
}
