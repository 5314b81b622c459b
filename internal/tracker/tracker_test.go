// SPDX-License-Identifier: MIT
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchtrack/internal/audiotest"
	"pitchtrack/internal/config"
	"pitchtrack/internal/pcm"
	"pitchtrack/internal/sink"
)

const testSampleRate = 44100

func toneSource(samples []float32) *audiotest.MockSource {
	format := pcm.NewFormat(testSampleRate, 16, 1, true, false)
	return audiotest.NewMockSource(format, audiotest.Encode(format, samples))
}

func records(t *testing.T, s *audiotest.MockSink) []sink.Record {
	t.Helper()
	var out []sink.Record
	for _, item := range s.Items() {
		rec, ok := item.(sink.Record)
		require.True(t, ok, "unexpected item %T", item)
		out = append(out, rec)
	}
	return out
}

func run(t *testing.T, cfg *config.Config, samples []float32) (*Tracker, []sink.Record) {
	t.Helper()
	out := &audiotest.MockSink{}
	tr, err := New(cfg, toneSource(samples), out)
	require.NoError(t, err)
	require.NoError(t, tr.Run(context.Background()))
	require.NoError(t, tr.Close())
	assert.True(t, out.Closed())
	return tr, records(t, out)
}

func TestTrackerReportsPitch(t *testing.T) {
	for _, alg := range []string{"yin", "fastyin", "mpm"} {
		t.Run(alg, func(t *testing.T) {
			cfg := config.Default()
			cfg.Pitch.Algorithm = alg
			samples := audiotest.GenerateSineWave(8*config.DefaultWindowSize, testSampleRate, 440, 0.7)

			_, recs := run(t, cfg, samples)
			// One record per step; the first window starts with overlap zeros.
			require.Len(t, recs, 16)
			for i, rec := range recs[1:] {
				assert.True(t, rec.Pitched, "window %d", i+1)
				assert.InDelta(t, 440, rec.Frequency, 4.4, "window %d", i+1)
				assert.Zero(t, rec.SpectralPeak)
			}
			assert.Zero(t, recs[0].Time)
			assert.InDelta(t, float64(config.DefaultOverlap)/testSampleRate, recs[1].Time, 1e-9)
		})
	}
}

func TestTrackerGateDropsSilentWindows(t *testing.T) {
	cfg := config.Default()
	cfg.Gate.Enabled = true

	samples := make([]float32, 8*config.DefaultWindowSize)
	copy(samples[4096:], audiotest.GenerateSineWave(4096, testSampleRate, 440, 0.7))

	tr, recs := run(t, cfg, samples)
	require.NotNil(t, tr.Gate())
	require.Len(t, recs, 8)
	// The first window reaching the tone is read after 4096 samples.
	assert.InDelta(t, 4096.0/testSampleRate, recs[0].Time, 1e-9)
	for i := 1; i < len(recs); i++ {
		assert.InDelta(t, recs[i-1].Time+512.0/testSampleRate, recs[i].Time, 1e-9)
	}
}

func TestTrackerPitchedOnly(t *testing.T) {
	cfg := config.Default()
	cfg.Pitch.PitchedOnly = true

	samples := make([]float32, 8*config.DefaultWindowSize)
	copy(samples[4096:], audiotest.GenerateSineWave(4096, testSampleRate, 440, 0.7))

	_, recs := run(t, cfg, samples)
	require.NotEmpty(t, recs)
	for _, rec := range recs {
		assert.True(t, rec.Pitched)
	}
	assert.Less(t, len(recs), 16)
}

func TestTrackerSpectrumPeak(t *testing.T) {
	cfg := config.Default()
	cfg.Spectrum.Enabled = true
	samples := audiotest.GenerateSineWave(4*config.DefaultWindowSize, testSampleRate, 1000, 0.7)

	_, recs := run(t, cfg, samples)
	require.Greater(t, len(recs), 1)
	binWidth := float64(testSampleRate) / config.DefaultWindowSize
	assert.InDelta(t, 1000, recs[1].SpectralPeak, binWidth)
}

func TestTrackerFiltersKeepPitch(t *testing.T) {
	cfg := config.Default()
	cfg.Filters = []config.FilterConfig{
		{Type: config.FilterHighPass, Frequency: 100},
		{Type: config.FilterLowPassFS, Frequency: 2000},
	}
	samples := audiotest.GenerateSineWave(8*config.DefaultWindowSize, testSampleRate, 330, 0.7)

	tr, recs := run(t, cfg, samples)
	require.Len(t, tr.Filters(), 2)
	require.NotEmpty(t, recs)
	last := recs[len(recs)-2]
	assert.True(t, last.Pitched)
	assert.InDelta(t, 330, last.Frequency, 3.3)
}

func TestTrackerSkip(t *testing.T) {
	cfg := config.Default()
	cfg.Dispatch.Skip = 500 * time.Millisecond
	samples := audiotest.GenerateSineWave(testSampleRate, testSampleRate, 440, 0.7)

	_, recs := run(t, cfg, samples)
	require.NotEmpty(t, recs)
	assert.InDelta(t, 0.5, recs[0].Time, 1e-9)
}

func TestTrackerReconfigure(t *testing.T) {
	cfg := config.Default()
	cfg.Gate.Enabled = true
	cfg.Filters = []config.FilterConfig{{Type: config.FilterHighPass, Frequency: 50}}

	out := &audiotest.MockSink{}
	samples := audiotest.GenerateSineWave(8*config.DefaultWindowSize, testSampleRate, 440, 0.7)
	tr, err := New(cfg, toneSource(samples), out)
	require.NoError(t, err)

	next := *cfg
	next.Gate.Threshold = -20
	next.Filters = []config.FilterConfig{{Type: config.FilterHighPass, Frequency: 100}}
	tr.Reconfigure(&next)

	require.NoError(t, tr.Run(context.Background()))
	require.NoError(t, tr.Close())

	assert.Equal(t, -20.0, tr.Gate().Threshold())
	assert.Equal(t, float32(100), tr.Filters()[0].Frequency())
	// The tone sits around -36 dB, below the raised threshold.
	assert.Empty(t, out.Items())
}

func TestTrackerReconfigureKeepsChain(t *testing.T) {
	cfg := config.Default()
	cfg.Filters = []config.FilterConfig{{Type: config.FilterHighPass, Frequency: 50}}

	tr, err := New(cfg, toneSource(make([]float32, 2048)), &audiotest.MockSink{})
	require.NoError(t, err)

	next := *cfg
	next.Filters = []config.FilterConfig{{Type: config.FilterLowPassSP, Frequency: 500}}
	tr.Reconfigure(&next)
	require.NoError(t, tr.Run(context.Background()))

	assert.Equal(t, float32(50), tr.Filters()[0].Frequency())
	assert.Nil(t, tr.Gate())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"Overlap too large", func(c *config.Config) { c.Dispatch.Overlap = c.Dispatch.WindowSize }},
		{"Unknown algorithm", func(c *config.Config) { c.Pitch.Algorithm = "zcr" }},
		{"Unknown filter", func(c *config.Config) {
			c.Filters = []config.FilterConfig{{Type: "bandpass", Frequency: 100}}
		}},
		{"Filter above Nyquist", func(c *config.Config) {
			c.Filters = []config.FilterConfig{{Type: config.FilterHighPass, Frequency: 30000}}
		}},
		{"Unknown window", func(c *config.Config) {
			c.Spectrum.Enabled = true
			c.Spectrum.Window = "kaiser"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.modify(cfg)
			_, err := New(cfg, toneSource(make([]float32, 2048)), &audiotest.MockSink{})
			assert.Error(t, err)
		})
	}
}

func TestOpenSink(t *testing.T) {
	var buf bytes.Buffer
	s, err := OpenSink(config.OutputConfig{Format: config.OutputJSON, QueueDepth: 4}, &buf)
	require.NoError(t, err)
	require.NoError(t, s.Send(sink.Record{Time: 1.5, Frequency: 440, Probability: 0.9, Pitched: true, Level: -30}))
	require.NoError(t, s.Close())

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 1.5, got["time"])
	assert.Equal(t, 440.0, got["frequency"])
	assert.Equal(t, true, got["pitched"])
	assert.NotContains(t, got, "spectral_peak")

	buf.Reset()
	s, err = OpenSink(config.OutputConfig{Format: config.OutputText, QueueDepth: 4}, &buf)
	require.NoError(t, err)
	require.NoError(t, s.Send(sink.Record{Time: 1.5, Frequency: 440, Probability: 0.9, Pitched: true, Level: -30}))
	require.NoError(t, s.Close())
	assert.Contains(t, buf.String(), "440.00 Hz")

	_, err = OpenSink(config.OutputConfig{Format: config.OutputLog, QueueDepth: 1}, &buf)
	assert.NoError(t, err)
	_, err = OpenSink(config.OutputConfig{Format: "xml", QueueDepth: 1}, &buf)
	assert.Error(t, err)
}
