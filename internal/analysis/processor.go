// SPDX-License-Identifier: MIT
package analysis

// ResultProvider exposes the latest spectrum of an analysis processor to
// readers on other goroutines.
type ResultProvider interface {
	GetMagnitudes() []float32                // GetMagnitudes returns a copy of the latest magnitude spectrum.
	GetMagnitudesInto(dest []float32) error  // GetMagnitudesInto copies the latest spectrum without allocating.
	GetFrequencyForBin(binIndex int) float64 // GetFrequencyForBin returns the center frequency (Hz) of a bin.
	GetFFTSize() int                         // GetFFTSize returns the transform size.
	GetSampleRate() float64                  // GetSampleRate returns the analysed sample rate.
	DominantFrequency() float64              // DominantFrequency returns the strongest bin's frequency, 0 if none.
}
