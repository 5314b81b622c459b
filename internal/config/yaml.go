// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pitchtrack/internal/fft"
	"pitchtrack/internal/log"
	"pitchtrack/internal/pcm"
	"pitchtrack/internal/pitch"
)

var logger = log.Named("Config")

var ErrInvalid = errors.New("invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	LogLevel string         `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio    AudioConfig    `yaml:"audio"`     // Live capture settings.
	Raw      RawConfig      `yaml:"raw"`       // Layout of headerless PCM input.
	Dispatch DispatchConfig `yaml:"dispatch"`  // Analysis windows.
	Pitch    PitchConfig    `yaml:"pitch"`     // Detector selection and tuning.
	Gate     GateConfig     `yaml:"gate"`      // Silence gate in front of the detector.
	Filters  []FilterConfig `yaml:"filters"`   // IIR filters applied in order before detection.
	Spectrum SpectrumConfig `yaml:"spectrum"`  // Optional spectrum analysis.
	Output   OutputConfig   `yaml:"output"`    // Where estimates go.

	Path string `yaml:"-"` // File the configuration was read from, empty for defaults.
}

// AudioConfig holds settings related to audio input.
type AudioConfig struct {
	InputDevice     int           `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	SampleRate      float64       `yaml:"sample_rate"`       // Sample rate in Hz for capture and raw input.
	InputChannels   int           `yaml:"input_channels"`    // Channels to capture; they are averaged to mono.
	FramesPerBuffer int           `yaml:"frames_per_buffer"` // Frames per PortAudio callback.
	LowLatency      bool          `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	BufferDuration  time.Duration `yaml:"buffer_duration"`   // Ring buffer between callback and analysis.
}

// RawConfig describes headerless PCM input. Rate and channels come from AudioConfig.
type RawConfig struct {
	Encoding  string `yaml:"encoding"`   // "signed", "unsigned" or "float".
	Bits      int    `yaml:"bits"`       // Bits per sample.
	BigEndian bool   `yaml:"big_endian"` // Byte order.
}

// DispatchConfig holds the sliding window geometry.
type DispatchConfig struct {
	WindowSize   int           `yaml:"window_size"`    // Samples per analysis window.
	Overlap      int           `yaml:"overlap"`        // Samples shared by consecutive windows.
	ZeroPadFirst bool          `yaml:"zero_pad_first"` // Read the first window in full instead of overlap zeros plus one step.
	ZeroPadLast  bool          `yaml:"zero_pad_last"`  // Pad the final partial window instead of shrinking it.
	Skip         time.Duration `yaml:"skip"`           // Audio to skip at the start of a file.
}

// PitchConfig selects and tunes the detector.
type PitchConfig struct {
	Algorithm   string  `yaml:"algorithm"`    // "yin", "fastyin" or "mpm".
	Threshold   float64 `yaml:"threshold"`    // YIN absolute threshold.
	Cutoff      float64 `yaml:"cutoff"`       // MPM key maximum cutoff.
	LowerBound  float64 `yaml:"lower_bound"`  // MPM lowest reported frequency.
	PitchedOnly bool    `yaml:"pitched_only"` // Only emit windows with a pitch.
}

// GateConfig controls the silence detector.
type GateConfig struct {
	Enabled   bool    `yaml:"enabled"`      // Skip detection on silent windows.
	Threshold float64 `yaml:"threshold_db"` // Level in dB SPL below which a window is silent.
}

// FilterConfig describes one IIR filter.
type FilterConfig struct {
	Type      string  `yaml:"type"`      // "lowpass-sp", "lowpass-fs" or "highpass".
	Frequency float64 `yaml:"frequency"` // Cut-off in Hz.
}

// SpectrumConfig controls the spectrum analysis processor.
type SpectrumConfig struct {
	Enabled      bool    `yaml:"enabled"`       // Add the spectral peak to every record.
	Window       string  `yaml:"window"`        // Window function name.
	MinFrequency float64 `yaml:"min_frequency"` // Lowest bin considered for the peak.
}

// OutputConfig selects the estimate sink.
type OutputConfig struct {
	Format     string `yaml:"format"`      // "text", "json" or "log".
	QueueDepth int    `yaml:"queue_depth"` // Records buffered between analysis and output.
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations. If no file is found, it uses built-in defaults.
// After loading, it applies environment variable overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfig()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		logger.Debugf("loaded %s", path)
		cfg.Path = path
	}

	// Environment variables override the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Candidate locations searched when no path is given.
var candidates = []string{
	"pitchtrack.yaml",
	"config.yaml",
}

func findConfig() string {
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Validate checks ranges and names. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		fail("log_level %q is not a known level", c.LogLevel)
	}

	a := c.Audio
	if a.InputDevice < MinDeviceID {
		fail("audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		fail("audio.sample_rate must be in [%d, %d], got %g", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.InputChannels < 1 {
		fail("audio.input_channels must be positive, got %d", a.InputChannels)
	}
	if a.FramesPerBuffer < 1 || a.FramesPerBuffer > MaxBufferFrames {
		fail("audio.frames_per_buffer must be in [1, %d], got %d", MaxBufferFrames, a.FramesPerBuffer)
	}
	if a.BufferDuration < 0 {
		fail("audio.buffer_duration must not be negative")
	}

	if _, err := c.RawFormat(); err != nil {
		fail("raw: %v", err)
	}

	d := c.Dispatch
	if d.WindowSize < MinWindowSize || d.WindowSize > MaxWindowSize {
		fail("dispatch.window_size must be in [%d, %d], got %d", MinWindowSize, MaxWindowSize, d.WindowSize)
	}
	if d.Overlap < 0 || d.Overlap >= d.WindowSize {
		fail("dispatch.overlap must be in [0, window_size), got %d", d.Overlap)
	}
	if d.Skip < 0 {
		fail("dispatch.skip must not be negative")
	}

	p := c.Pitch
	if _, err := pitch.ParseAlgorithm(p.Algorithm); err != nil {
		fail("pitch.algorithm: %v", err)
	}
	if p.Threshold <= 0 || p.Threshold >= 1 {
		fail("pitch.threshold must be in (0, 1), got %g", p.Threshold)
	}
	if p.Cutoff <= 0 || p.Cutoff > 1 {
		fail("pitch.cutoff must be in (0, 1], got %g", p.Cutoff)
	}
	if p.LowerBound <= 0 {
		fail("pitch.lower_bound must be positive, got %g", p.LowerBound)
	}

	for i, f := range c.Filters {
		switch strings.ToLower(f.Type) {
		case FilterLowPassSP, FilterLowPassFS, FilterHighPass:
		default:
			fail("filters[%d].type %q is not one of %s, %s, %s", i, f.Type, FilterLowPassSP, FilterLowPassFS, FilterHighPass)
		}
		if f.Frequency <= 0 || f.Frequency >= a.SampleRate/2 {
			fail("filters[%d].frequency must be in (0, %g), got %g", i, a.SampleRate/2, f.Frequency)
		}
	}

	if _, err := fft.ParseWindow(c.Spectrum.Window); err != nil {
		fail("spectrum.window: %v", err)
	}
	if c.Spectrum.MinFrequency < 0 {
		fail("spectrum.min_frequency must not be negative")
	}

	switch c.Output.Format {
	case OutputText, OutputJSON, OutputLog:
	default:
		fail("output.format %q is not one of %s, %s, %s", c.Output.Format, OutputText, OutputJSON, OutputLog)
	}
	if c.Output.QueueDepth < 1 {
		fail("output.queue_depth must be positive, got %d", c.Output.QueueDepth)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// RawFormat builds the PCM layout of headerless input.
func (c *Config) RawFormat() (pcm.Format, error) {
	enc, err := pcm.ParseEncoding(c.Raw.Encoding)
	if err != nil {
		return pcm.Format{}, err
	}
	rate := float32(c.Audio.SampleRate)
	var f pcm.Format
	switch enc {
	case pcm.SignedPCM, pcm.UnsignedPCM:
		f = pcm.NewFormat(rate, c.Raw.Bits, c.Audio.InputChannels, enc == pcm.SignedPCM, c.Raw.BigEndian)
	case pcm.Float:
		f = pcm.NewFloatFormat(rate, c.Raw.Bits, c.Audio.InputChannels, c.Raw.BigEndian)
	default:
		return pcm.Format{}, fmt.Errorf("%w: %s", pcm.ErrUnsupportedFormat, enc)
	}
	if err := f.Validate(); err != nil {
		return pcm.Format{}, err
	}
	if _, err := pcm.NewCodec(f); err != nil {
		return pcm.Format{}, err
	}
	return f, nil
}

// applyEnvOverrides applies ENV_* variables on top of the loaded values.
// Unparsable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	str := func(name string, dst *string) {
		if val, ok := os.LookupEnv(name); ok {
			*dst = val
			logger.Debugf("overriding from %s: %s", name, val)
		}
	}
	integer := func(name string, dst *int) {
		if val, ok := os.LookupEnv(name); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				logger.Warnf("ignoring %s=%q: %v", name, val, err)
				return
			}
			*dst = n
			logger.Debugf("overriding from %s: %d", name, n)
		}
	}
	float := func(name string, dst *float64) {
		if val, ok := os.LookupEnv(name); ok {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				logger.Warnf("ignoring %s=%q: %v", name, val, err)
				return
			}
			*dst = f
			logger.Debugf("overriding from %s: %g", name, f)
		}
	}
	boolean := func(name string, dst *bool) {
		if val, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				logger.Warnf("ignoring %s=%q: %v", name, val, err)
				return
			}
			*dst = b
			logger.Debugf("overriding from %s: %v", name, b)
		}
	}

	str("ENV_LOG_LEVEL", &c.LogLevel)
	integer("ENV_INPUT_DEVICE", &c.Audio.InputDevice)
	float("ENV_SAMPLE_RATE", &c.Audio.SampleRate)
	integer("ENV_INPUT_CHANNELS", &c.Audio.InputChannels)
	boolean("ENV_LOW_LATENCY", &c.Audio.LowLatency)
	integer("ENV_WINDOW_SIZE", &c.Dispatch.WindowSize)
	integer("ENV_OVERLAP", &c.Dispatch.Overlap)
	str("ENV_ALGORITHM", &c.Pitch.Algorithm)
	float("ENV_THRESHOLD", &c.Pitch.Threshold)
	boolean("ENV_GATE_ENABLED", &c.Gate.Enabled)
	float("ENV_GATE_THRESHOLD", &c.Gate.Threshold)
	str("ENV_OUTPUT_FORMAT", &c.Output.Format)
}
