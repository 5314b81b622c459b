// SPDX-License-Identifier: MIT
package dispatch

import (
	"math"
	"sync/atomic"

	"github.com/tphakala/simd/f32"
)

// DefaultSilenceThreshold is the level, in dB SPL, below which a window is
// considered silent.
const DefaultSilenceThreshold = -70.0

// SilenceDetector is a gate for the processor chain: it stops the chain for
// windows whose level is below the threshold.
type SilenceDetector struct {
	threshold  atomic.Uint64 // float64 bits
	currentSPL atomic.Uint64 // float64 bits
}

// NewSilenceDetector creates a gate with the given threshold in dB SPL.
func NewSilenceDetector(threshold float64) *SilenceDetector {
	s := &SilenceDetector{}
	s.SetThreshold(threshold)
	s.currentSPL.Store(math.Float64bits(math.Inf(-1)))
	return s
}

// SetThreshold adjusts the gate threshold. It is safe to call while the
// dispatcher runs.
func (s *SilenceDetector) SetThreshold(threshold float64) {
	s.threshold.Store(math.Float64bits(threshold))
}

// Threshold returns the gate threshold in dB SPL.
func (s *SilenceDetector) Threshold() float64 {
	return math.Float64frombits(s.threshold.Load())
}

// CurrentSPL returns the level of the most recent window.
func (s *SilenceDetector) CurrentSPL() float64 {
	return math.Float64frombits(s.currentSPL.Load())
}

// IsSilence reports whether buf is below the threshold.
func (s *SilenceDetector) IsSilence(buf []float32) bool {
	spl := SoundPressureLevel(buf)
	s.currentSPL.Store(math.Float64bits(spl))
	return spl < s.Threshold()
}

func (s *SilenceDetector) Process(e *Event) bool {
	return !s.IsSilence(e.Buffer())
}

func (s *SilenceDetector) ProcessingFinished() {}

// SoundPressureLevel returns 20·log10(sqrt(energy)/len(buf)), the level used
// by the silence gate. An empty or all-zero buffer returns -Inf.
func SoundPressureLevel(buf []float32) float64 {
	if len(buf) == 0 {
		return math.Inf(-1)
	}
	energy := float64(f32.DotProductUnsafe(buf, buf))
	return linearToDecibel(math.Sqrt(energy) / float64(len(buf)))
}
