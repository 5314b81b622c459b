// SPDX-License-Identifier: MIT
/*
Package pcm describes raw PCM sample layouts and converts between their byte
representation and normalized float32 samples in the range [-1, 1].

A Format is a plain value. A Codec is selected once per Format by NewCodec and
then reused for every buffer of that stream.
*/
package pcm

import (
	"errors"
	"fmt"
	"strings"
)

// Encoding identifies how a sample is represented in bytes.
type Encoding int

const (
	SignedPCM Encoding = iota
	UnsignedPCM
	Float
	ULaw
	ALaw
)

// String returns the conventional name of the encoding.
func (e Encoding) String() string {
	switch e {
	case SignedPCM:
		return "PCM_SIGNED"
	case UnsignedPCM:
		return "PCM_UNSIGNED"
	case Float:
		return "PCM_FLOAT"
	case ULaw:
		return "ULAW"
	case ALaw:
		return "ALAW"
	default:
		return "UNKNOWN"
	}
}

// ParseEncoding converts a case-insensitive name to an Encoding.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(name) {
	case "signed", "pcm_signed", "s":
		return SignedPCM, nil
	case "unsigned", "pcm_unsigned", "u":
		return UnsignedPCM, nil
	case "float", "pcm_float", "f":
		return Float, nil
	case "ulaw":
		return ULaw, nil
	case "alaw":
		return ALaw, nil
	default:
		return SignedPCM, fmt.Errorf("unknown sample encoding: '%s'", name)
	}
}

var (
	ErrInvalidFormat     = errors.New("pcm: invalid format")
	ErrUnsupportedFormat = errors.New("pcm: unsupported format")
)

// Format describes the layout of a PCM stream.
type Format struct {
	Encoding         Encoding
	SampleRate       float32 // Samples per second per channel.
	SampleSizeInBits int
	Channels         int
	FrameSize        int // Bytes per frame (one sample for every channel).
	FrameRate        float32
	BigEndian        bool
}

// NewFormat returns an integer PCM format with the frame size and frame rate
// derived from the other fields.
func NewFormat(sampleRate float32, bits, channels int, signed, bigEndian bool) Format {
	enc := UnsignedPCM
	if signed {
		enc = SignedPCM
	}
	return Format{
		Encoding:         enc,
		SampleRate:       sampleRate,
		SampleSizeInBits: bits,
		Channels:         channels,
		FrameSize:        frameSize(bits, channels),
		FrameRate:        sampleRate,
		BigEndian:        bigEndian,
	}
}

// NewFloatFormat returns an IEEE float format (32 or 64 bits per sample).
func NewFloatFormat(sampleRate float32, bits, channels int, bigEndian bool) Format {
	return Format{
		Encoding:         Float,
		SampleRate:       sampleRate,
		SampleSizeInBits: bits,
		Channels:         channels,
		FrameSize:        frameSize(bits, channels),
		FrameRate:        sampleRate,
		BigEndian:        bigEndian,
	}
}

func frameSize(bits, channels int) int {
	if bits <= 0 || channels <= 0 {
		return 0
	}
	return ((bits + 7) / 8) * channels
}

// BytesPerSample is the number of bytes used by one sample of one channel.
func (f Format) BytesPerSample() int {
	return (f.SampleSizeInBits + 7) / 8
}

// Validate reports whether the format is internally consistent.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %g", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidFormat, f.Channels)
	}
	if f.SampleSizeInBits <= 0 {
		return fmt.Errorf("%w: sample size must be positive, got %d", ErrInvalidFormat, f.SampleSizeInBits)
	}
	if f.FrameSize == 0 {
		return fmt.Errorf("%w: frame size is zero", ErrInvalidFormat)
	}
	if want := frameSize(f.SampleSizeInBits, f.Channels); f.FrameSize != want {
		return fmt.Errorf("%w: frame size %d does not match %d bits x %d channels (want %d)",
			ErrInvalidFormat, f.FrameSize, f.SampleSizeInBits, f.Channels, want)
	}
	return nil
}

// String renders the format the way audio tools usually print it, e.g.
// "PCM_SIGNED 44100.0 Hz, 16 bit, mono, 2 bytes/frame, little-endian".
func (f Format) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1f Hz, %d bit, ", f.Encoding, f.SampleRate, f.SampleSizeInBits)
	switch f.Channels {
	case 1:
		b.WriteString("mono")
	case 2:
		b.WriteString("stereo")
	default:
		fmt.Fprintf(&b, "%d channels", f.Channels)
	}
	fmt.Fprintf(&b, ", %d bytes/frame", f.FrameSize)
	if f.SampleSizeInBits > 8 {
		if f.BigEndian {
			b.WriteString(", big-endian")
		} else {
			b.WriteString(", little-endian")
		}
	}
	return b.String()
}
