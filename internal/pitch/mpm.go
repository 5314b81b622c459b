// SPDX-License-Identifier: MIT
package pitch

import (
	"math"

	"github.com/tphakala/simd/f32"
)

// McLeod implements the McLeod Pitch Method: key maxima of the normalized
// square difference function are refined parabolically and the first one
// close enough to the highest maximum gives the period.
type McLeod struct {
	sampleRate float32
	cutoff     float32
	lowerBound float32

	nsdf         []float32
	maxPositions []int
	periods      []float32
	amplitudes   []float32
}

// NewMPM creates a McLeod detector for windows of windowSize samples.
func NewMPM(sampleRate float32, windowSize int, cutoff, lowerBound float64) *McLeod {
	return &McLeod{
		sampleRate:   sampleRate,
		cutoff:       float32(cutoff),
		lowerBound:   float32(lowerBound),
		nsdf:         make([]float32, windowSize),
		maxPositions: make([]int, 0, windowSize/2),
		periods:      make([]float32, 0, windowSize/2),
		amplitudes:   make([]float32, 0, windowSize/2),
	}
}

func (m *McLeod) GetPitch(window []float32) Estimate {
	n := min(len(window), len(m.nsdf))
	if n < 3 {
		return unpitched(0)
	}
	window = window[:n]
	nsdf := m.nsdf[:n]

	m.maxPositions = m.maxPositions[:0]
	m.periods = m.periods[:0]
	m.amplitudes = m.amplitudes[:0]

	normalizedSquareDifference(window, nsdf)
	m.maxPositions = peakPicking(nsdf, m.maxPositions)

	highest := float32(math.Inf(-1))
	for _, tau := range m.maxPositions {
		highest = max(highest, nsdf[tau])
		if nsdf[tau] > smallCutoff {
			x, y := turningPoint(nsdf, tau)
			m.periods = append(m.periods, x)
			m.amplitudes = append(m.amplitudes, y)
			highest = max(highest, y)
		}
	}

	if len(m.maxPositions) == 0 {
		return unpitched(0)
	}
	if len(m.periods) == 0 {
		return unpitched(highest)
	}

	// The first estimate above the cutoff wins; if none is, the first one.
	threshold := m.cutoff * highest
	index := 0
	for i, amp := range m.amplitudes {
		if amp > threshold {
			index = i
			break
		}
	}

	hz := m.sampleRate / m.periods[index]
	if !(hz > m.lowerBound) || math.IsInf(float64(hz), 0) {
		return unpitched(highest)
	}
	return Estimate{Frequency: hz, Probability: highest, Pitched: true}
}

// normalizedSquareDifference computes n'(τ) = 2·r(τ)/m(τ) for every lag,
// with r the autocorrelation and m the sum of squares of both overlapping
// parts. m is updated incrementally from m(0) = 2·Σx².
func normalizedSquareDifference(x, nsdf []float32) {
	n := len(x)
	var m float64
	for _, v := range x {
		m += float64(v) * float64(v)
	}
	m *= 2

	for tau := range n {
		if tau > 0 {
			a, b := float64(x[n-tau]), float64(x[tau-1])
			m -= a*a + b*b
		}
		acf := f32.DotProductUnsafe(x[:n-tau], x[tau:])
		if m <= 0 {
			nsdf[tau] = 0
			continue
		}
		nsdf[tau] = float32(2 * float64(acf) / m)
	}
}

// peakPicking appends to dst the highest maximum between each pair of
// positive-going zero crossings, ignoring the initial positive lobe around
// lag zero.
func peakPicking(nsdf []float32, dst []int) []int {
	n := len(nsdf)
	pos := 0
	curMaxPos := 0

	for pos < (n-1)/3 && nsdf[pos] > 0 {
		pos++
	}
	for pos < n-1 && nsdf[pos] <= 0 {
		pos++
	}
	if pos == 0 {
		pos = 1
	}

	for pos < n-1 {
		if nsdf[pos] > nsdf[pos-1] && nsdf[pos] >= nsdf[pos+1] {
			if curMaxPos == 0 || nsdf[pos] > nsdf[curMaxPos] {
				curMaxPos = pos
			}
		}
		pos++
		if pos < n-1 && nsdf[pos] <= 0 {
			if curMaxPos > 0 {
				dst = append(dst, curMaxPos)
				curMaxPos = 0
			}
			for pos < n-1 && nsdf[pos] <= 0 {
				pos++
			}
		}
	}
	if curMaxPos > 0 {
		dst = append(dst, curMaxPos)
	}
	return dst
}

// turningPoint fits a parabola through nsdf[tau-1..tau+1] and returns the
// position and value of its vertex.
func turningPoint(nsdf []float32, tau int) (x, y float32) {
	a, b, c := nsdf[tau-1], nsdf[tau], nsdf[tau+1]
	bottom := c + a - 2*b
	if bottom == 0 {
		return float32(tau), b
	}
	delta := a - c
	return float32(tau) + delta/(2*bottom), b - delta*delta/(8*bottom)
}
