// SPDX-License-Identifier: MIT
/*
Package filter provides recursive (IIR) filters that run as dispatcher
processors.

Each filter is defined by the difference equation

	y[n] = Σ a[j]·x[n-j] + Σ b[k]·y[n-1-k]

factored into second-order sections that run through an algo-dsp biquad
cascade. Filtering is in place, from the event's overlap to the end of the
window. The overlapping samples were already filtered as part of the
previous window, so only new samples are touched and the section state
carries over between windows.
*/
package filter

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"

	"pitchtrack/internal/dispatch"
)

// design computes the sections for a cut-off frequency.
type design func(frequency, sampleRate float32) []biquad.Coefficients

// IIR is a single-channel recursive filter. It is not safe for concurrent
// use; change the frequency between windows only.
type IIR struct {
	name       string
	frequency  float32
	sampleRate float32
	minimum    float32
	design     design

	sections []biquad.Coefficients
	chain    *biquad.Chain
	work     []float64
}

func newIIR(name string, frequency, sampleRate, minimum float32, d design) *IIR {
	f := &IIR{
		name:       name,
		sampleRate: sampleRate,
		minimum:    minimum,
		design:     d,
	}
	f.SetFrequency(frequency)
	return f
}

// Frequency returns the cut-off frequency in Hz.
func (f *IIR) Frequency() float32 { return f.frequency }

// SetFrequency recomputes the coefficients. The section state is kept.
func (f *IIR) SetFrequency(frequency float32) {
	f.frequency = max(frequency, f.minimum)
	f.sections = f.design(f.frequency, f.sampleRate)
	if f.chain == nil || f.chain.NumSections() != len(f.sections) {
		f.chain = biquad.NewChain(f.sections)
		return
	}
	for i, c := range f.sections {
		f.chain.Section(i).Coefficients = c
	}
}

// Reset clears the filter history.
func (f *IIR) Reset() {
	f.chain.Reset()
}

// Apply filters buf in place, continuing from the current state.
func (f *IIR) Apply(buf []float32) {
	if len(buf) == 0 {
		return
	}
	if cap(f.work) < len(buf) {
		f.work = make([]float64, len(buf))
	}
	work := f.work[:len(buf)]
	for i, x := range buf {
		work[i] = float64(x)
	}
	f.chain.ProcessBlock(work)
	for i, y := range work {
		buf[i] = float32(y)
	}
}
func (f *IIR) Process(e *dispatch.Event) bool {
	buf := e.Buffer()
	if start := e.Overlap(); start < len(buf) {
		f.Apply(buf[start:])
	}
	return true
}

func (f *IIR) ProcessingFinished() {}

func (f *IIR) String() string {
	return fmt.Sprintf("%s(%.1f Hz)", f.name, f.frequency)
}
