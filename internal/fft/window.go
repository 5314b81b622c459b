// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// Window selects a window function applied before a spectrum transform.
type Window int

const (
	Rectangular Window = iota
	Hann
	Hamming
	Blackman
	BlackmanHarris
	BlackmanNuttall
	Nuttall
	BartlettHann
	ScaledHamming
	BlackmanHarrisNuttall
)

var windowNames = map[Window]string{
	Rectangular:           "rectangular",
	Hann:                  "hann",
	Hamming:               "hamming",
	Blackman:              "blackman",
	BlackmanHarris:        "blackmanharris",
	BlackmanNuttall:       "blackmannuttall",
	Nuttall:               "nuttall",
	BartlettHann:          "bartletthann",
	ScaledHamming:         "scaledhamming",
	BlackmanHarrisNuttall: "blackmanharrisnuttall",
}

func (w Window) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("window(%d)", int(w))
}

// ParseWindow converts a case-insensitive name to a Window. Unknown names
// return Hann and an error.
func ParseWindow(name string) (Window, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(name, "-", ""), "_", ""))
	switch key {
	case "", "none", "rect", "rectangular":
		return Rectangular, nil
	case "hanning":
		return Hann, nil
	}
	for w, n := range windowNames {
		if n == key {
			return w, nil
		}
	}
	return Hann, fmt.Errorf("unknown window function name: '%s'", name)
}

// Coefficients returns the window of the given length.
func (w Window) Coefficients(n int) []float32 {
	seq := make([]float64, n)
	for i := range seq {
		seq[i] = 1
	}

	switch w {
	case Rectangular:
	case Hann:
		window.Hann(seq)
	case Hamming:
		window.Hamming(seq)
	case Blackman:
		window.Blackman(seq)
	case BlackmanHarris:
		window.BlackmanHarris(seq)
	case BlackmanNuttall:
		window.BlackmanNuttall(seq)
	case Nuttall:
		window.Nuttall(seq)
	case BartlettHann:
		window.BartlettHann(seq)
	case ScaledHamming:
		// Periodic Hamming with 25/46 coefficients, normalized so the
		// window sums to roughly one.
		scale := 1 / float64(n) / 0.54
		for i := range seq {
			seq[i] = scale * (25.0/46.0 - 21.0/46.0*math.Cos(2*math.Pi*float64(i)/float64(n)))
		}
	case BlackmanHarrisNuttall:
		// Four-term cosine sum with every term added, over the periodic
		// length n.
		c := [4]float64{0.355768, 0.487396, 0.144232, 0.012604}
		for i := range seq {
			var sum float64
			for k, ck := range c {
				sum += ck * math.Cos(2*math.Pi*float64(k)*float64(i)/float64(n))
			}
			seq[i] = sum
		}
	}

	out := make([]float32, n)
	for i, v := range seq {
		out[i] = float32(v)
	}
	return out
}
