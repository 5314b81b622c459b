// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"sync"
	"testing"

	"pitchtrack/internal/audiotest"
	"pitchtrack/internal/dispatch"
	"pitchtrack/internal/fft"
	"pitchtrack/internal/pcm"
)

func newEvent(t testing.TB, rate float32, buf []float32) *dispatch.Event {
	t.Helper()
	e, err := dispatch.NewEvent(pcm.NewFormat(rate, 16, 1, true, false), buf)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestNewSpectrumProcessorValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		rate    float64
		wantErr bool
	}{
		{"valid", 1024, 44100, false},
		{"not power of two", 1000, 44100, true},
		{"zero rate", 1024, 0, true},
		{"too small", 1, 44100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSpectrumProcessor(tt.size, tt.rate, 0, fft.Hann)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDominantFrequency(t *testing.T) {
	p, err := NewSpectrumProcessor(1024, 8000, 20, fft.Hann)
	if err != nil {
		t.Fatal(err)
	}

	e := newEvent(t, 8000, audiotest.GenerateSineWave(1024, 8000, 1000, 0.5))
	if !p.Process(e) {
		t.Error("Process must not stop the chain")
	}
	if got := p.DominantFrequency(); got != 1000 {
		t.Errorf("DominantFrequency() = %f, want 1000", got)
	}

	mags := p.GetMagnitudes()
	if len(mags) != 513 {
		t.Fatalf("got %d magnitudes, want 513", len(mags))
	}
	if peak := audiotest.FindPeakBin(mags, 1, len(mags)); peak != 128 {
		t.Errorf("peak bin = %d, want 128", peak)
	}
}

func TestShortFramesAreZeroPadded(t *testing.T) {
	p, err := NewSpectrumProcessor(2048, 8000, 20, fft.Rectangular)
	if err != nil {
		t.Fatal(err)
	}
	p.Process(newEvent(t, 8000, audiotest.GenerateSineWave(1024, 8000, 500, 0.5)))
	if got := p.DominantFrequency(); got < 495 || got > 505 {
		t.Errorf("DominantFrequency() = %f, want about 500", got)
	}

	p.Process(newEvent(t, 8000, make([]float32, 512)))
	if got := p.DominantFrequency(); got != 0 {
		t.Errorf("silence: DominantFrequency() = %f, want 0", got)
	}
}

func TestMinimumFrequencyIgnoresLowBins(t *testing.T) {
	p, err := NewSpectrumProcessor(1024, 8000, 200, fft.Hann)
	if err != nil {
		t.Fatal(err)
	}
	buf := audiotest.GenerateSineWave(1024, 8000, 62.5, 0.9)
	tone := audiotest.GenerateSineWave(1024, 8000, 1500, 0.1)
	for i := range buf {
		buf[i] += tone[i]
	}
	p.Process(newEvent(t, 8000, buf))
	if got := p.DominantFrequency(); got != 1500 {
		t.Errorf("DominantFrequency() = %f, want 1500", got)
	}
}

func TestGetMagnitudesInto(t *testing.T) {
	p, err := NewSpectrumProcessor(256, 8000, 0, fft.Hann)
	if err != nil {
		t.Fatal(err)
	}
	p.Process(newEvent(t, 8000, audiotest.GenerateSineWave(256, 8000, 1000, 0.5)))

	dest := make([]float32, 129)
	if err := p.GetMagnitudesInto(dest); err != nil {
		t.Fatal(err)
	}
	if dest[32] == 0 {
		t.Error("expected energy at bin 32")
	}
	if err := p.GetMagnitudesInto(make([]float32, 128)); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestGetFrequencyForBin(t *testing.T) {
	p, err := NewSpectrumProcessor(1024, 44100, 0, fft.Hann)
	if err != nil {
		t.Fatal(err)
	}
	if p.GetFFTSize() != 1024 || p.GetSampleRate() != 44100 {
		t.Errorf("unexpected configuration: %d, %f", p.GetFFTSize(), p.GetSampleRate())
	}
	tests := []struct {
		bin  int
		want float64
	}{
		{0, 0},
		{1, 44100.0 / 1024},
		{512, 22050},
		{513, 0},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := p.GetFrequencyForBin(tt.bin); got != tt.want {
			t.Errorf("GetFrequencyForBin(%d) = %f, want %f", tt.bin, got, tt.want)
		}
	}
}

func TestConcurrentReaders(t *testing.T) {
	p, err := NewSpectrumProcessor(512, 8000, 0, fft.Hann)
	if err != nil {
		t.Fatal(err)
	}
	e := newEvent(t, 8000, audiotest.GenerateComplexWave(512, 8000, 220))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 100 {
			p.Process(e)
		}
	}()
	go func() {
		defer wg.Done()
		dest := make([]float32, 257)
		for range 100 {
			_ = p.GetMagnitudesInto(dest)
			_ = p.DominantFrequency()
		}
	}()
	wg.Wait()
}

func TestProcessNoAllocsHotPath(t *testing.T) {
	p, err := NewSpectrumProcessor(1024, 44100, 20, fft.Hann)
	if err != nil {
		t.Fatal(err)
	}
	e := newEvent(t, 44100, audiotest.GenerateComplexWave(1024, 44100, 440))
	allocs := testing.AllocsPerRun(50, func() {
		p.Process(e)
	})
	if allocs != 0 {
		t.Errorf("Process allocated %.1f times per run", allocs)
	}
}
