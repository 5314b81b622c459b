// SPDX-License-Identifier: MIT
/*
Package pitch estimates the fundamental frequency of monophonic audio
windows.

Three detectors are provided:
  - YIN, the time-domain difference function with cumulative mean
    normalization
  - FastYIN, the same estimate with the difference function computed through
    an FFT autocorrelation
  - MPM, the McLeod Pitch Method based on the normalized square difference
    function

Detectors keep scratch buffers sized for the window length given at
construction and reuse them on every call, so a detector must not be shared
between goroutines.
*/
package pitch

import (
	"fmt"
	"strings"
)

// NoPitch is the frequency reported for unpitched windows.
const NoPitch float32 = -1

// Estimate is the result of one detection.
type Estimate struct {
	Frequency   float32 // Hz, or NoPitch.
	Probability float32
	Pitched     bool
}

func (e Estimate) String() string {
	return fmt.Sprintf("%.2f Hz (p=%.3f, pitched=%t)", e.Frequency, e.Probability, e.Pitched)
}

func unpitched(probability float32) Estimate {
	return Estimate{Frequency: NoPitch, Probability: probability}
}

// Detector estimates the pitch of an analysis window. The window is only
// read during the call.
type Detector interface {
	GetPitch(window []float32) Estimate
}

// Algorithm selects a detector implementation.
type Algorithm int

const (
	YIN Algorithm = iota
	FastYIN
	MPM
)

func (a Algorithm) String() string {
	switch a {
	case YIN:
		return "yin"
	case FastYIN:
		return "fastyin"
	case MPM:
		return "mpm"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// ParseAlgorithm converts a case-insensitive name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(name)) {
	case "yin":
		return YIN, nil
	case "fastyin", "yinfft":
		return FastYIN, nil
	case "mpm", "mcleod", "mcleodpitchmethod":
		return MPM, nil
	default:
		return YIN, fmt.Errorf("unknown pitch algorithm: '%s'", name)
	}
}

const (
	// DefaultThreshold is the YIN absolute threshold.
	DefaultThreshold = 0.20
	// DefaultCutoff is the MPM key-maximum cutoff, relative to the highest
	// peak.
	DefaultCutoff = 0.97
	// DefaultLowerBound is the lowest frequency MPM reports, in Hz.
	DefaultLowerBound = 80.0

	// smallCutoff is the NSDF level below which MPM ignores a peak.
	smallCutoff = 0.5
)

type options struct {
	threshold  float64
	cutoff     float64
	lowerBound float64
}

// Option tunes a detector built by New.
type Option func(*options)

// WithThreshold sets the YIN and FastYIN absolute threshold.
func WithThreshold(t float64) Option {
	return func(o *options) { o.threshold = t }
}

// WithCutoff sets the MPM cutoff.
func WithCutoff(c float64) Option {
	return func(o *options) { o.cutoff = c }
}

// WithLowerBound sets the lowest frequency MPM reports.
func WithLowerBound(hz float64) Option {
	return func(o *options) { o.lowerBound = hz }
}

// New builds a detector for windows of windowSize samples.
func New(alg Algorithm, sampleRate float32, windowSize int, opts ...Option) (Detector, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("pitch: sample rate must be positive, got %g", sampleRate)
	}
	if windowSize < 4 {
		return nil, fmt.Errorf("pitch: window of %d samples is too short", windowSize)
	}

	o := options{
		threshold:  DefaultThreshold,
		cutoff:     DefaultCutoff,
		lowerBound: DefaultLowerBound,
	}
	for _, opt := range opts {
		opt(&o)
	}

	switch alg {
	case YIN:
		return NewYin(sampleRate, windowSize, o.threshold), nil
	case FastYIN:
		return NewFastYin(sampleRate, windowSize, o.threshold)
	case MPM:
		return NewMPM(sampleRate, windowSize, o.cutoff, o.lowerBound), nil
	default:
		return nil, fmt.Errorf("pitch: unknown algorithm %s", alg)
	}
}
