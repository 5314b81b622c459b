// SPDX-License-Identifier: MIT
package filter

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

// NewHighPass returns a single-pole high-pass filter.
func NewHighPass(frequency, sampleRate float32) *IIR {
	return newIIR("highpass", frequency, sampleRate, 0, highPass)
}

// highPass: y[n] = (1+x)/2·x[n] - (1+x)/2·x[n-1] + x·y[n-1].
func highPass(frequency, sampleRate float32) []biquad.Coefficients {
	x := math.Exp(-2 * math.Pi * float64(frequency/sampleRate))
	g := (1 + x) / 2
	return []biquad.Coefficients{{B0: g, B1: -g, A1: -x}}
}
