// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults and limits of the pitch tracker configuration.
const (
	DefaultLogLevel        = "info"
	DefaultDeviceID        = MinDeviceID // System default input device.
	DefaultSampleRate      = 44100       // CD-quality audio.
	DefaultChannels        = 1           // Mono.
	DefaultFramesPerBuffer = 512         // Balanced latency/performance.
	DefaultBufferDuration  = 2 * time.Second

	DefaultWindowSize = 1024
	DefaultOverlap    = 512
	DefaultAlgorithm  = "yin"
	DefaultThreshold  = 0.20
	DefaultCutoff     = 0.97
	DefaultLowerBound = 80.0

	DefaultGateThreshold = -70.0 // dB SPL.
	DefaultFFTWindow     = "hann"
	DefaultSpectrumMinHz = 20.0
	DefaultOutputFormat  = "text"
	DefaultQueueDepth    = 256

	// Hardware and processing limits.
	MinDeviceID     = -1     // -1 represents system default device.
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz).
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz).
	MaxBufferFrames = 8192   // Maximum frames per capture buffer.
	MinWindowSize   = 4
	MaxWindowSize   = 1 << 20
)

// Filter types accepted in FilterConfig.Type.
const (
	FilterLowPassSP = "lowpass-sp"
	FilterLowPassFS = "lowpass-fs"
	FilterHighPass  = "highpass"
)

// Output formats accepted in OutputConfig.Format.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputLog  = "log"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			InputChannels:   DefaultChannels,
			FramesPerBuffer: DefaultFramesPerBuffer,
			BufferDuration:  DefaultBufferDuration,
		},
		Raw: RawConfig{
			Encoding: "signed",
			Bits:     16,
		},
		Dispatch: DispatchConfig{
			WindowSize:  DefaultWindowSize,
			Overlap:     DefaultOverlap,
			ZeroPadLast: true,
		},
		Pitch: PitchConfig{
			Algorithm:  DefaultAlgorithm,
			Threshold:  DefaultThreshold,
			Cutoff:     DefaultCutoff,
			LowerBound: DefaultLowerBound,
		},
		Gate: GateConfig{
			Threshold: DefaultGateThreshold,
		},
		Spectrum: SpectrumConfig{
			Window:       DefaultFFTWindow,
			MinFrequency: DefaultSpectrumMinHz,
		},
		Output: OutputConfig{
			Format:     DefaultOutputFormat,
			QueueDepth: DefaultQueueDepth,
		},
	}
}
