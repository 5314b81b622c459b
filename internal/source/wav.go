// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"pitchtrack/internal/pcm"
)

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

// openWAV serves the data chunk unchanged. 8 bit WAV is unsigned, wider
// integer samples are signed, all little-endian.
func openWAV(rs io.ReadSeeker) (*Source, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a WAV file", ErrInvalidFile)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	rate := float32(dec.SampleRate)
	bits, channels := int(dec.BitDepth), int(dec.NumChans)

	var format pcm.Format
	switch dec.WavAudioFormat {
	case wavFormatPCM, wavFormatExtensible:
		format = pcm.NewFormat(rate, bits, channels, bits > 8, false)
	case wavFormatFloat:
		format = pcm.NewFloatFormat(rate, bits, channels, false)
	default:
		return nil, fmt.Errorf("%w: WAV format tag %#x", pcm.ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	size := dec.PCMLen()
	return &Source{
		r:      io.LimitReader(dec.PCMChunk, size),
		format: format,
		frames: size / int64(format.FrameSize),
	}, nil
}
