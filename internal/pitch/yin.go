// SPDX-License-Identifier: MIT
package pitch

import "math"

// Yin implements the YIN estimator of de Cheveigné and Kawahara.
type Yin struct {
	sampleRate float32
	threshold  float32
	buf        []float32 // Difference function, one value per lag in [0, W/2).
}

// NewYin creates a YIN detector for windows of windowSize samples.
func NewYin(sampleRate float32, windowSize int, threshold float64) *Yin {
	return &Yin{
		sampleRate: sampleRate,
		threshold:  float32(threshold),
		buf:        make([]float32, windowSize/2),
	}
}

func (y *Yin) GetPitch(window []float32) Estimate {
	d := y.buf[:min(len(window)/2, len(y.buf))]
	if len(d) < 3 {
		return unpitched(0)
	}
	difference(window, d)
	return yinEstimate(d, y.threshold, y.sampleRate, false)
}

// difference computes d(τ) = Σ (x[i] - x[i+τ])² over the first len(d)
// samples, for every lag τ < len(d).
func difference(x, d []float32) {
	half := len(d)
	d[0] = 0
	for tau := 1; tau < half; tau++ {
		var sum float32
		for i, v := range x[:half] {
			delta := v - x[i+tau]
			sum += delta * delta
		}
		d[tau] = sum
	}
}

// yinEstimate normalizes the difference function in d and turns it into an
// estimate. rejectAbove1 discards probabilities above one, which can only
// come from rounding in the FFT difference.
func yinEstimate(d []float32, threshold, sampleRate float32, rejectAbove1 bool) Estimate {
	cumulativeMeanNormalizedDifference(d)

	tau, probability := absoluteThreshold(d, threshold)
	if tau < 0 || (rejectAbove1 && probability > 1) {
		return unpitched(0)
	}

	betterTau := parabolicInterpolation(d, tau)
	hz := sampleRate / betterTau
	if betterTau <= 0 || math.IsInf(float64(hz), 0) || math.IsNaN(float64(hz)) {
		return unpitched(0)
	}
	return Estimate{Frequency: hz, Probability: probability, Pitched: true}
}

// cumulativeMeanNormalizedDifference replaces d(τ) by d(τ)·τ/Σd(1..τ), with
// d(0) = 1. Lags with a zero running sum, as in digital silence, are set
// to 1.
func cumulativeMeanNormalizedDifference(d []float32) {
	d[0] = 1
	var runningSum float32
	for tau := 1; tau < len(d); tau++ {
		runningSum += d[tau]
		if runningSum == 0 {
			d[tau] = 1
			continue
		}
		d[tau] *= float32(tau) / runningSum
	}
}

// absoluteThreshold finds the first lag from 2 whose normalized difference
// drops below threshold, then follows it down to the local minimum. It
// returns -1 when no lag qualifies.
func absoluteThreshold(d []float32, threshold float32) (int, float32) {
	tau := 2
	for ; tau < len(d); tau++ {
		if d[tau] < threshold {
			for tau+1 < len(d) && d[tau+1] < d[tau] {
				tau++
			}
			break
		}
	}
	if tau == len(d) || !(d[tau] < threshold) {
		return -1, 0
	}
	return tau, 1 - d[tau]
}

// parabolicInterpolation refines tau using its neighbours. At the edges of
// d the smaller neighbour wins.
func parabolicInterpolation(d []float32, tau int) float32 {
	x0 := tau
	if tau >= 1 {
		x0 = tau - 1
	}
	x2 := tau
	if tau+1 < len(d) {
		x2 = tau + 1
	}

	switch {
	case x0 == tau:
		if d[tau] <= d[x2] {
			return float32(tau)
		}
		return float32(x2)
	case x2 == tau:
		if d[tau] <= d[x0] {
			return float32(tau)
		}
		return float32(x0)
	}

	s0, s1, s2 := d[x0], d[tau], d[x2]
	denom := 2 * (2*s1 - s2 - s0)
	if denom == 0 {
		return float32(tau)
	}
	return float32(tau) + (s2-s0)/denom
}
