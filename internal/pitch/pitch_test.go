// SPDX-License-Identifier: MIT
package pitch

import (
	"context"
	"fmt"
	"math"
	"testing"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchtrack/internal/audiotest"
	"pitchtrack/internal/dispatch"
	"pitchtrack/internal/pcm"
)

const (
	testSampleRate = 44100
	testWindow     = 1024
)

var algorithms = []Algorithm{YIN, FastYIN, MPM}

func newDetector(t testing.TB, alg Algorithm, opts ...Option) Detector {
	t.Helper()
	d, err := New(alg, testSampleRate, testWindow, opts...)
	require.NoError(t, err)
	return d
}

func TestDetectorsFindSine(t *testing.T) {
	for _, alg := range algorithms {
		for _, freq := range []float64{110, 220, 440, 880, 1760} {
			t.Run(fmt.Sprintf("%s/%.0fHz", alg, freq), func(t *testing.T) {
				d := newDetector(t, alg)
				window := audiotest.GenerateSineWave(testWindow, testSampleRate, freq, 0.8)

				est := d.GetPitch(window)
				require.True(t, est.Pitched, "estimate %v", est)
				assert.InDelta(t, freq, est.Frequency, 0.01*freq)
				assert.Greater(t, est.Probability, float32(0.8))
				assert.LessOrEqual(t, est.Probability, float32(1.001))
			})
		}
	}
}

func TestDetectorsFindHarmonicFundamental(t *testing.T) {
	window := audiotest.GenerateComplexWave(testWindow, testSampleRate, 440)
	for _, alg := range algorithms {
		est := newDetector(t, alg).GetPitch(window)
		assert.True(t, est.Pitched, "%s", alg)
		assert.InDelta(t, 440, est.Frequency, 4.4, "%s", alg)
	}
}

func TestDetectorsRejectSilence(t *testing.T) {
	silence := make([]float32, testWindow)
	for _, alg := range algorithms {
		est := newDetector(t, alg).GetPitch(silence)
		assert.Equal(t, Estimate{Frequency: NoPitch}, est, "%s", alg)
	}
}

func TestDetectorsHandleShortWindows(t *testing.T) {
	window := audiotest.GenerateSineWave(600, testSampleRate, 440, 0.8)
	for _, alg := range algorithms {
		d := newDetector(t, alg)
		est := d.GetPitch(window)
		assert.True(t, est.Pitched, "%s", alg)
		assert.InDelta(t, 440, est.Frequency, 4.4, "%s", alg)

		assert.False(t, d.GetPitch(window[:4]).Pitched, "%s", alg)
	}
}

func TestFastYinMatchesYin(t *testing.T) {
	yin := NewYin(testSampleRate, testWindow, DefaultThreshold)
	fast, err := NewFastYin(testSampleRate, testWindow, DefaultThreshold)
	require.NoError(t, err)

	for _, freq := range []float64{98, 196, 330, 523.25, 1046.5} {
		window := audiotest.GenerateComplexWave(testWindow, testSampleRate, freq)
		want := yin.GetPitch(window)
		got := fast.GetPitch(window)

		require.Equal(t, want.Pitched, got.Pitched, "%.2f Hz", freq)
		assert.InDelta(t, want.Frequency, got.Frequency, 0.005*float64(want.Frequency), "%.2f Hz", freq)
		assert.InDelta(t, want.Probability, got.Probability, 0.01, "%.2f Hz", freq)
	}
}

func TestFastYinDifferenceMatchesDirect(t *testing.T) {
	fast, err := NewFastYin(testSampleRate, testWindow, DefaultThreshold)
	require.NoError(t, err)

	window := audiotest.GenerateComplexWave(testWindow, testSampleRate, 261.63)
	want := make([]float32, testWindow/2)
	difference(window, want)
	fast.difference(window)

	for tau := range want {
		require.InDelta(t, want[tau], fast.buf[tau], 1e-2+1e-4*float64(want[tau]), "lag %d", tau)
	}
}

func TestFastYinAutocorrelationMatchesConvolution(t *testing.T) {
	const size = 256
	half := size / 2
	fast, err := NewFastYin(8000, size, DefaultThreshold)
	require.NoError(t, err)

	window := audiotest.GenerateComplexWave(size, 8000, 310)
	kernel := make([]float32, half)
	for j := range kernel {
		kernel[j] = window[half-1-j]
	}
	want := make([]float32, size+half-1)
	require.NoError(t, algofft.ConvolveReal(want, window, kernel))

	fast.correlate(window)
	for tau := range half {
		require.InDelta(t, want[half-1+tau], fast.audio[2*(half-1+tau)], 1e-2, "lag %d", tau)
	}
}

func TestMPMLowerBound(t *testing.T) {
	const rate = 8000
	window := audiotest.GenerateSineWave(testWindow, rate, 40, 0.8)

	d, err := New(MPM, rate, testWindow)
	require.NoError(t, err)
	est := d.GetPitch(window)
	assert.Equal(t, NoPitch, est.Frequency)
	assert.False(t, est.Pitched)
	assert.Greater(t, est.Probability, float32(0.9))

	d, err = New(MPM, rate, testWindow, WithLowerBound(30))
	require.NoError(t, err)
	est = d.GetPitch(window)
	assert.True(t, est.Pitched)
	assert.InDelta(t, 40, est.Frequency, 0.4)
}

func TestYinThreshold(t *testing.T) {
	// Uniform noise never drops below a tiny threshold.
	noise := make([]float32, testWindow)
	seed := uint32(1)
	for i := range noise {
		seed = seed*1664525 + 1013904223
		noise[i] = float32(seed>>8)/float32(1<<24)*2 - 1
	}

	for _, alg := range []Algorithm{YIN, FastYIN} {
		est := newDetector(t, alg, WithThreshold(0.01)).GetPitch(noise)
		assert.False(t, est.Pitched, "%s", alg)
		assert.Zero(t, est.Probability, "%s", alg)
	}
}

func TestParabolicInterpolation(t *testing.T) {
	tests := []struct {
		name string
		d    []float32
		tau  int
		want float32
	}{
		{"Symmetric", []float32{1, 0.5, 0.1, 0.5}, 2, 2},
		{"Skewed right", []float32{1, 0.6, 0.1, 0.4}, 2, 2 + (0.4-0.6)/(2*(0.2-0.4-0.6))},
		{"Left edge", []float32{0.1, 0.3}, 0, 0},
		{"Left edge, right smaller", []float32{0.3, 0.1}, 0, 1},
		{"Right edge", []float32{0.5, 0.2, 0.1}, 2, 2},
		{"Right edge, left smaller", []float32{0.5, 0.05, 0.1}, 2, 1},
		{"Flat", []float32{0.2, 0.2, 0.2}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, parabolicInterpolation(tt.d, tt.tau), 1e-6)
		})
	}
}

func TestPeakPicking(t *testing.T) {
	// Positive lobe, negative dip, two maxima separated by another dip.
	nsdf := []float32{1, 0.5, -0.2, 0.3, 0.8, 0.6, -0.1, 0.4, 0.9, 0.7, 0.2, 0}
	assert.Equal(t, []int{4, 8}, peakPicking(nsdf, nil))

	assert.Empty(t, peakPicking(make([]float32, 16), nil))
}

func TestGetPitchDoesNotAllocate(t *testing.T) {
	window := audiotest.GenerateComplexWave(testWindow, testSampleRate, 440)
	for _, alg := range algorithms {
		d := newDetector(t, alg)
		allocs := testing.AllocsPerRun(20, func() {
			d.GetPitch(window)
		})
		assert.Zero(t, allocs, "%s", alg)
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"yin", YIN, false},
		{"YIN", YIN, false},
		{"fast-yin", FastYIN, false},
		{"FastYin", FastYIN, false},
		{"mpm", MPM, false},
		{"McLeod", MPM, false},
		{"autocorrelation", YIN, true},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantErr, err != nil, tt.in)
	}
	for _, alg := range algorithms {
		got, err := ParseAlgorithm(alg.String())
		require.NoError(t, err)
		assert.Equal(t, alg, got)
	}
}

func TestNewReturnsAlgorithmDetector(t *testing.T) {
	assert.IsType(t, &Yin{}, newDetector(t, YIN))
	assert.IsType(t, &FastYin{}, newDetector(t, FastYIN))
	assert.IsType(t, &McLeod{}, newDetector(t, MPM))
}

func TestNewRejectsInvalidArguments(t *testing.T) {
	_, err := New(YIN, 0, 1024)
	assert.Error(t, err)
	_, err = New(YIN, 44100, 2)
	assert.Error(t, err)
	_, err = New(Algorithm(42), 44100, 1024)
	assert.Error(t, err)
}

func TestProcessorWithDispatcher(t *testing.T) {
	format := pcm.NewFormat(testSampleRate, 16, 1, true, false)
	samples := audiotest.GenerateSineWave(testWindow*8, testSampleRate, 440, 0.7)
	src := audiotest.NewMockSource(format, audiotest.Encode(format, samples))

	d, err := dispatch.New(src, testWindow, testWindow/2)
	require.NoError(t, err)

	var (
		estimates []Estimate
		stamps    []float64
	)
	p := NewProcessor(newDetector(t, FastYIN), func(est Estimate, e *dispatch.Event) {
		estimates = append(estimates, est)
		stamps = append(stamps, e.TimeStamp())
	})
	d.AddProcessor(p)
	require.NoError(t, d.Run(context.Background()))

	// The first window is half zeros, too little signal for a period.
	require.Len(t, estimates, 16)
	assert.False(t, estimates[0].Pitched)
	for i, est := range estimates[1:] {
		assert.True(t, est.Pitched, "window %d", i+1)
		assert.InDelta(t, 440, est.Frequency, 4.4, "window %d", i+1)
	}
	assert.InDelta(t, 0, stamps[0], 1e-9)
	assert.InDelta(t, float64(testWindow/2)/testSampleRate, stamps[1], 1e-9)
	assert.False(t, math.IsNaN(stamps[len(stamps)-1]))
}

func BenchmarkGetPitch(b *testing.B) {
	window := audiotest.GenerateComplexWave(2048, testSampleRate, 440)
	for _, alg := range algorithms {
		b.Run(alg.String(), func(b *testing.B) {
			d, err := New(alg, testSampleRate, 2048)
			if err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			for b.Loop() {
				d.GetPitch(window)
			}
		})
	}
}
