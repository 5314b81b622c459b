// SPDX-License-Identifier: MIT
/*
Package analysis provides spectrum analysis that runs alongside pitch
detection in the dispatcher's processor chain.

SpectrumProcessor windows each event, transforms it and keeps the magnitude
spectrum and the dominant frequency for readers on other goroutines.
*/
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"pitchtrack/internal/dispatch"
	"pitchtrack/internal/fft"
	"pitchtrack/internal/log"
	"pitchtrack/pkg/bitint"
)

var logger = log.Named("Analysis")

var ErrSizeMismatch = errors.New("analysis: destination length does not match spectrum")

// Pre-allocated buffers for the transform.
type workspace struct {
	input     []float32    // Windowed frame, transformed in place.
	magnitude []float32    // |X[k]| for k <= fftSize/2.
	dominant  float64      // Frequency of the strongest bin above minBin.
	mu        sync.RWMutex // Protects magnitude and dominant.
}

// SpectrumProcessor is a dispatch.Processor computing the magnitude spectrum
// of every window. Frames shorter than the transform are zero-padded, longer
// ones truncated.
type SpectrumProcessor struct {
	spectrum   *fft.Spectrum
	fftSize    int
	sampleRate float64
	minBin     int
	workspace  workspace
}

var (
	_ dispatch.Processor = (*SpectrumProcessor)(nil)
	_ ResultProvider     = (*SpectrumProcessor)(nil)
)

// NewSpectrumProcessor creates a processor for a power-of-two fftSize.
// Bins below minHz are ignored when looking for the dominant frequency.
func NewSpectrumProcessor(fftSize int, sampleRate, minHz float64, windowType fft.Window) (*SpectrumProcessor, error) {
	if !bitint.IsPowerOfTwo(fftSize) || fftSize < 2 {
		return nil, fmt.Errorf("analysis: fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("analysis: sample rate must be positive, got %f", sampleRate)
	}

	spectrum, err := fft.NewSpectrum(fftSize, windowType, fft.WithWorkers(1))
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	minBin := max(1, int(math.Ceil(minHz*float64(fftSize)/sampleRate)))
	logger.Debugf("spectrum size %d, sample rate %.1f Hz, window %v", fftSize, sampleRate, windowType)

	return &SpectrumProcessor{
		spectrum:   spectrum,
		fftSize:    fftSize,
		sampleRate: sampleRate,
		minBin:     minBin,
		workspace: workspace{
			input:     make([]float32, fftSize),
			magnitude: make([]float32, fftSize/2+1),
		},
	}, nil
}

// Process transforms the event buffer. It never stops the chain.
func (p *SpectrumProcessor) Process(e *dispatch.Event) bool {
	p.workspace.mu.Lock()
	defer p.workspace.mu.Unlock()

	n := copy(p.workspace.input, e.Buffer())
	clear(p.workspace.input[n:])
	p.spectrum.Magnitudes(p.workspace.input, p.workspace.magnitude)

	peak := -1
	var best float32
	for k := p.minBin; k < len(p.workspace.magnitude); k++ {
		if m := p.workspace.magnitude[k]; m > best {
			best, peak = m, k
		}
	}
	if peak < 0 {
		p.workspace.dominant = 0
	} else {
		p.workspace.dominant = p.GetFrequencyForBin(peak)
	}
	return true
}

func (p *SpectrumProcessor) ProcessingFinished() {
	logger.Debugf("spectrum processor finished")
}

// GetMagnitudes returns a copy of the latest magnitudes. Use
// GetMagnitudesInto on hot paths.
func (p *SpectrumProcessor) GetMagnitudes() []float32 {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()
	return append([]float32(nil), p.workspace.magnitude...)
}

// GetMagnitudesInto copies the latest magnitudes into dest, which must hold
// exactly fftSize/2+1 values.
func (p *SpectrumProcessor) GetMagnitudesInto(dest []float32) error {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	if len(dest) != len(p.workspace.magnitude) {
		return fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, len(dest), len(p.workspace.magnitude))
	}
	copy(dest, p.workspace.magnitude)
	return nil
}

// GetFrequencyForBin returns the center frequency (Hz) for a bin, or 0 if
// the bin is out of range.
func (p *SpectrumProcessor) GetFrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= len(p.workspace.magnitude) {
		return 0
	}
	return p.spectrum.BinToHz(binIndex, float32(p.sampleRate))
}

func (p *SpectrumProcessor) GetFFTSize() int { return p.fftSize }

func (p *SpectrumProcessor) GetSampleRate() float64 { return p.sampleRate }

func (p *SpectrumProcessor) DominantFrequency() float64 {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()
	return p.workspace.dominant
}
